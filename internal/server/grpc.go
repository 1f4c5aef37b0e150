package server

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/table"
)

// CandidatesServiceName is the fully qualified gRPC service name.
const CandidatesServiceName = "candidates.v1.CandidatesService"

// CandidatesServer exposes the dashboard queries over gRPC. Requests and responses are
// protobuf Structs with the same keys as the HTTP API.
type CandidatesServer interface {
	Query(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Distribution(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Summary(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reload(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func RegisterCandidatesServer(s grpc.ServiceRegistrar, srv CandidatesServer) {
	s.RegisterService(&candidatesServiceDesc, srv)
}

// CandidatesService implements CandidatesServer over a table and its loader.
type CandidatesService struct {
	table  *table.Table
	loader *Loader
	logger *slog.Logger
}

var _ CandidatesServer = (*CandidatesService)(nil)

func NewCandidatesService(tbl *table.Table, loader *Loader, logger *slog.Logger) *CandidatesService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CandidatesService{table: tbl, loader: loader, logger: logger}
}

func (s *CandidatesService) Query(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	params := structParams(req)
	q, err := ParseQuery(params)
	if err != nil {
		return nil, common.ToGRPCError(err)
	}
	rows := s.table.Query(q)
	cols := columnsFor(first(params[paramFields]))

	outRows := make([]any, len(rows))
	for i, m := range project(rows, cols) {
		row := make(map[string]any, len(m))
		for k, v := range m {
			row[k] = v
		}
		outRows[i] = row
	}
	return newStruct(map[string]any{
		"total":   s.table.Len(),
		"matched": len(rows),
		"columns": anyList(cols),
		"rows":    outRows,
	})
}

func (s *CandidatesService) Distribution(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := ParseQuery(structParams(req))
	if err != nil {
		return nil, common.ToGRPCError(err)
	}
	d := table.Distribute(s.table.Query(q))
	cats := make(map[string]any, len(d.Categories))
	for col, counts := range d.Categories {
		cats[col] = countList(counts)
	}
	return newStruct(map[string]any{
		"categories": cats,
		"experience": countList(d.Experience),
		"binned":     countList(d.Binned),
	})
}

func (s *CandidatesService) Summary(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	sum := s.table.Summary()
	facets := make(map[string]any, len(sum.Facets))
	for col, opts := range sum.Facets {
		facets[col] = anyList(opts)
	}
	return newStruct(map[string]any{
		"total":          sum.Total,
		"facets":         facets,
		"experience_min": sum.ExperienceMin,
		"experience_max": sum.ExperienceMax,
		"columns":        anyList(sum.Columns),
		"loaded_at":      sum.LoadedAt.Format(time.RFC3339Nano),
	})
}

func (s *CandidatesService) Reload(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	n, err := s.loader.Reload(ctx)
	if err != nil {
		return nil, common.ToGRPCError(err)
	}
	return newStruct(map[string]any{"rows": n})
}

// structParams flattens a request Struct into query parameters. Lists become repeated
// values and numbers keep their shortest decimal form.
func structParams(req *structpb.Struct) map[string][]string {
	params := map[string][]string{}
	for k, v := range req.GetFields() {
		params[k] = appendValue(params[k], v)
	}
	return params
}

func appendValue(dst []string, v *structpb.Value) []string {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return append(dst, k.StringValue)
	case *structpb.Value_NumberValue:
		return append(dst, strconv.FormatFloat(k.NumberValue, 'f', -1, 64))
	case *structpb.Value_BoolValue:
		return append(dst, strconv.FormatBool(k.BoolValue))
	case *structpb.Value_ListValue:
		for _, e := range k.ListValue.GetValues() {
			dst = appendValue(dst, e)
		}
	}
	return dst
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return out, nil
}

func anyList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func countList(counts []table.Count) []any {
	out := make([]any, len(counts))
	for i, c := range counts {
		out[i] = map[string]any{"label": c.Label, "count": c.Count}
	}
	return out
}

// UnaryLogging tags each call with a request id and logs its outcome.
func UnaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("x-request-id"); len(vals) > 0 {
				id = vals[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, id)

		resp, err := handler(ctx, req)
		attrs := []any{
			"method", info.FullMethod,
			"request_id", id,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.Warn("grpc.request.failed", append(attrs, "err", err)...)
		} else {
			logger.Debug("grpc.request.ok", attrs...)
		}
		return resp, err
	}
}

// CandidatesClient is a thin client for CandidatesServer.
type CandidatesClient struct {
	cc grpc.ClientConnInterface
}

func NewCandidatesClient(cc grpc.ClientConnInterface) *CandidatesClient {
	return &CandidatesClient{cc: cc}
}

func (c *CandidatesClient) Query(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+CandidatesServiceName+"/Query", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CandidatesClient) Distribution(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+CandidatesServiceName+"/Distribution", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CandidatesClient) Summary(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+CandidatesServiceName+"/Summary", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CandidatesClient) Reload(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+CandidatesServiceName+"/Reload", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

var candidatesServiceDesc = grpc.ServiceDesc{
	ServiceName: CandidatesServiceName,
	HandlerType: (*CandidatesServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Query", Handler: structHandler("Query", CandidatesServer.Query)},
		{MethodName: "Distribution", Handler: structHandler("Distribution", CandidatesServer.Distribution)},
		{MethodName: "Summary", Handler: emptyHandler("Summary", CandidatesServer.Summary)},
		{MethodName: "Reload", Handler: emptyHandler("Reload", CandidatesServer.Reload)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "candidates/v1/candidates.proto",
}

func structHandler(name string, call func(CandidatesServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CandidatesServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CandidatesServiceName + "/" + name}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(CandidatesServer), ctx, req.(*structpb.Struct))
		})
	}
}

func emptyHandler(name string, call func(CandidatesServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CandidatesServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CandidatesServiceName + "/" + name}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(CandidatesServer), ctx, req.(*emptypb.Empty))
		})
	}
}
