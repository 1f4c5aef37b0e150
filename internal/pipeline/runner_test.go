package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
	"github.com/joseph-ayodele/candidate-search/internal/export"
	extractmocks "github.com/joseph-ayodele/candidate-search/internal/extract/mocks"
	"github.com/joseph-ayodele/candidate-search/internal/ingest"
	llmmocks "github.com/joseph-ayodele/candidate-search/internal/llm/mocks"
)

type fakeSink struct {
	rows  []entity.CandidateRow
	calls int
	err   error
}

func (s *fakeSink) ReplaceAll(_ context.Context, rows []entity.CandidateRow) error {
	s.calls++
	s.rows = rows
	return s.err
}

type fakeNotifier struct {
	events []entity.RefreshEvent
	err    error
}

func (n *fakeNotifier) PublishRefresh(_ context.Context, ev entity.RefreshEvent) error {
	n.events = append(n.events, ev)
	return n.err
}

func outputConfig(dir string) common.OutputConfig {
	return common.OutputConfig{Dir: dir, JSONName: "resumes.json", CSVName: "resumes.csv", XLSXName: "resumes.xlsx"}
}

func TestRunnerRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "alice.txt"), []byte("Alice"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "bob.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.md"), []byte("ignored"), 0o644))
	out := t.TempDir()

	te := extractmocks.NewMockTextExtractor(ctrl)
	te.EXPECT().Extract(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(echoText).Times(2)
	fe := llmmocks.NewMockFieldExtractor(ctrl)
	fe.EXPECT().ExtractFields(gomock.Any(), gomock.Any()).Return(
		`{"name": "Alice", "sectors": ["tech", "Tech"], "experience_years": 7}`, nil)
	fe.EXPECT().ExtractFields(gomock.Any(), gomock.Any()).Return("not json", nil)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	sink := &fakeSink{}
	notifier := &fakeNotifier{err: errors.New("broker down")}

	r := NewRunner(RunnerConfig{
		Source:    ingest.NewDirectory(src, true, nil),
		Collector: NewCollector(te, fe, nil, WithWorkers(1), WithMetrics(metrics)),
		Exporter:  export.NewService(outputConfig(out), nil),
		Sink:      sink,
		Notifier:  notifier,
		Metrics:   metrics,
	}, nil)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 2, rep.Batch.Documents)
	assert.Equal(t, 1, rep.Batch.Parsed)
	assert.Equal(t, 1, rep.Batch.Unparseable)
	assert.Equal(t, 2, rep.Written.Rows)

	f, err := os.Open(rep.Written.CSVPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := export.ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// lexical order: alice.txt then bob.pdf
	assert.Equal(t, "Alice", rows[0].Name)
	assert.Equal(t, "Tech", rows[0].Sectors)
	assert.Equal(t, "alice.txt", rows[0].SourceFile)
	assert.Equal(t, "", rows[1].Name)
	assert.Equal(t, "bob.pdf", rows[1].SourceFile)

	assert.Equal(t, 1, sink.calls)
	assert.Len(t, sink.rows, 2)

	// a failed notification does not fail the run
	require.Len(t, notifier.events, 1)
	assert.Equal(t, rep.RunID, notifier.events[0].RunID)
	assert.Equal(t, 2, notifier.events[0].Candidates)
	assert.Equal(t, 1, notifier.events[0].Failed)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.lastRun))
}

func TestRunnerMissingSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	out := t.TempDir()
	sink := &fakeSink{}
	r := NewRunner(RunnerConfig{
		Source:    ingest.NewDirectory(filepath.Join(out, "does-not-exist"), true, nil),
		Collector: NewCollector(extractmocks.NewMockTextExtractor(ctrl), llmmocks.NewMockFieldExtractor(ctrl), nil),
		Exporter:  export.NewService(outputConfig(out), nil),
		Sink:      sink,
	}, nil)

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSourceNotFound)
	assert.Equal(t, 0, sink.calls)
	_, statErr := os.Stat(filepath.Join(out, "resumes.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunnerCancelledKeepsOutputs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("A"), 0o644))
	out := t.TempDir()
	previous := []byte("previous\n")
	require.NoError(t, os.WriteFile(filepath.Join(out, "resumes.csv"), previous, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(RunnerConfig{
		Source:    ingest.NewDirectory(src, true, nil),
		Collector: NewCollector(extractmocks.NewMockTextExtractor(ctrl), llmmocks.NewMockFieldExtractor(ctrl), nil),
		Exporter:  export.NewService(outputConfig(out), nil),
	}, nil)

	_, err := r.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := os.ReadFile(filepath.Join(out, "resumes.csv"))
	require.NoError(t, err)
	assert.Equal(t, previous, got)
}
