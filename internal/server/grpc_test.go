package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/candidate-search/internal/table"
)

func newTestClient(t *testing.T) (*CandidatesClient, *table.Table) {
	t.Helper()
	tbl := table.New(fixtureRows())
	loader := NewLoader(tbl, nil, filepath.Join(t.TempDir(), "missing.csv"), nil)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryLogging(nil)))
	RegisterCandidatesServer(srv, NewCandidatesService(tbl, loader, nil))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewCandidatesClient(conn), tbl
}

func TestGRPCQuery(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	req, err := structpb.NewStruct(map[string]any{
		"sectors":   []any{"tech"},
		"min_years": 5,
	})
	require.NoError(t, err)

	resp, err := client.Query(ctx, req)
	require.NoError(t, err)
	m := resp.AsMap()
	assert.Equal(t, float64(3), m["total"])
	assert.Equal(t, float64(2), m["matched"])
	rows := m["rows"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ann", rows[0].(map[string]any)["name"])
	assert.Equal(t, "Cy", rows[1].(map[string]any)["name"])
}

func TestGRPCQueryInvalid(t *testing.T) {
	client, _ := newTestClient(t)

	req, err := structpb.NewStruct(map[string]any{"max_years": -1})
	require.NoError(t, err)
	_, err = client.Query(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCSummaryAndDistribution(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	sum, err := client.Summary(ctx)
	require.NoError(t, err)
	m := sum.AsMap()
	assert.Equal(t, float64(3), m["total"])
	assert.Equal(t, []any{"Energy", "Healthcare", "Tech"}, m["facets"].(map[string]any)["sectors"])
	assert.Equal(t, float64(12), m["experience_max"])

	dist, err := client.Distribution(ctx, &structpb.Struct{})
	require.NoError(t, err)
	binned := dist.AsMap()["binned"].([]any)
	require.Len(t, binned, len(table.DefaultBinLabels))
	assert.Equal(t, map[string]any{"label": "2-5", "count": float64(1)}, binned[1])
}

func TestGRPCReloadNotFound(t *testing.T) {
	client, tbl := newTestClient(t)
	_, err := client.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, 3, tbl.Len())
}

func TestStructParams(t *testing.T) {
	req, err := structpb.NewStruct(map[string]any{
		"markets":   []any{"Us", []any{"Asia"}},
		"min_years": 2.5,
		"fields":    "all",
	})
	require.NoError(t, err)
	got := structParams(req)
	assert.Equal(t, []string{"Us", "Asia"}, got["markets"])
	assert.Equal(t, []string{"2.5"}, got["min_years"])
	assert.Equal(t, []string{"all"}, got["fields"])
}
