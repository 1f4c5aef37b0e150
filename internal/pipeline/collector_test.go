package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/joseph-ayodele/candidate-search/constants"
	"github.com/joseph-ayodele/candidate-search/internal/extract"
	extractmocks "github.com/joseph-ayodele/candidate-search/internal/extract/mocks"
	"github.com/joseph-ayodele/candidate-search/internal/ingest"
	"github.com/joseph-ayodele/candidate-search/internal/llm"
	llmmocks "github.com/joseph-ayodele/candidate-search/internal/llm/mocks"
)

func docs(names ...string) []ingest.Document {
	out := make([]ingest.Document, len(names))
	for i, n := range names {
		out[i] = ingest.NewDocument(n, "/resumes/"+n, []byte("data of "+n))
	}
	return out
}

// echoText returns the document name as its text.
func echoText(_ context.Context, name string, _ []byte) (extract.Result, error) {
	return extract.Result{Text: "resume of " + name, Pages: 1}, nil
}

func TestCollect(t *testing.T) {
	testCases := []struct {
		name       string
		mock       func(ctrl *gomock.Controller) (extract.TextExtractor, llm.FieldExtractor)
		docs       []ingest.Document
		wantNames  []string
		wantStatus []constants.DocumentStatus
	}{
		{
			name: "all parsed",
			mock: func(ctrl *gomock.Controller) (extract.TextExtractor, llm.FieldExtractor) {
				te := extractmocks.NewMockTextExtractor(ctrl)
				te.EXPECT().Extract(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(echoText).Times(2)
				fe := llmmocks.NewMockFieldExtractor(ctrl)
				fe.EXPECT().ExtractFields(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, req llm.ExtractRequest) (string, error) {
						return fmt.Sprintf("```json\n{\"name\": %q}\n```", req.Filename), nil
					}).Times(2)
				return te, fe
			},
			docs:       docs("a.pdf", "b.docx"),
			wantNames:  []string{"a.pdf", "b.docx"},
			wantStatus: []constants.DocumentStatus{constants.DocumentStatusParsed, constants.DocumentStatusParsed},
		},
		{
			name: "bad json absorbed",
			mock: func(ctrl *gomock.Controller) (extract.TextExtractor, llm.FieldExtractor) {
				te := extractmocks.NewMockTextExtractor(ctrl)
				te.EXPECT().Extract(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(echoText)
				fe := llmmocks.NewMockFieldExtractor(ctrl)
				fe.EXPECT().ExtractFields(gomock.Any(), gomock.Any()).Return("Sorry, I can't help with that.", nil)
				return te, fe
			},
			docs:       docs("bad.pdf"),
			wantNames:  []string{""},
			wantStatus: []constants.DocumentStatus{constants.DocumentStatusUnparseable},
		},
		{
			name: "llm error absorbed",
			mock: func(ctrl *gomock.Controller) (extract.TextExtractor, llm.FieldExtractor) {
				te := extractmocks.NewMockTextExtractor(ctrl)
				te.EXPECT().Extract(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(echoText)
				fe := llmmocks.NewMockFieldExtractor(ctrl)
				fe.EXPECT().ExtractFields(gomock.Any(), gomock.Any()).Return("", errors.New("rate limited"))
				return te, fe
			},
			docs:       docs("a.pdf"),
			wantNames:  []string{""},
			wantStatus: []constants.DocumentStatus{constants.DocumentStatusLLMFailed},
		},
		{
			name: "text failure skips the llm",
			mock: func(ctrl *gomock.Controller) (extract.TextExtractor, llm.FieldExtractor) {
				te := extractmocks.NewMockTextExtractor(ctrl)
				te.EXPECT().Extract(gomock.Any(), "scan.pdf", gomock.Any()).Return(extract.Result{}, errors.New("no text layer"))
				te.EXPECT().Extract(gomock.Any(), "blank.docx", gomock.Any()).Return(extract.Result{Text: "  \n"}, nil)
				fe := llmmocks.NewMockFieldExtractor(ctrl)
				return te, fe
			},
			docs:       docs("scan.pdf", "blank.docx"),
			wantNames:  []string{"", ""},
			wantStatus: []constants.DocumentStatus{constants.DocumentStatusEmptyText, constants.DocumentStatusEmptyText},
		},
		{
			name: "no documents",
			mock: func(ctrl *gomock.Controller) (extract.TextExtractor, llm.FieldExtractor) {
				return extractmocks.NewMockTextExtractor(ctrl), llmmocks.NewMockFieldExtractor(ctrl)
			},
			docs:       nil,
			wantNames:  []string{},
			wantStatus: []constants.DocumentStatus{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			te, fe := tc.mock(ctrl)

			c := NewCollector(te, fe, nil, WithWorkers(2))
			got, outcomes := c.CollectWithOutcomes(context.Background(), tc.docs)

			require.Len(t, got, len(tc.docs))
			require.Len(t, outcomes, len(tc.docs))
			names := []string{}
			statuses := []constants.DocumentStatus{}
			for i, cand := range got {
				assert.Equal(t, tc.docs[i].Name, cand.SourceFile)
				assert.Equal(t, tc.docs[i].Name, outcomes[i].File)
				assert.NotNil(t, cand.Skills)
				names = append(names, cand.Name)
				statuses = append(statuses, outcomes[i].Status)
			}
			assert.Equal(t, tc.wantNames, names)
			assert.Equal(t, tc.wantStatus, statuses)
		})
	}
}

func TestCollectPreservesOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	names := []string{"slow.pdf", "a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"}
	te := extractmocks.NewMockTextExtractor(ctrl)
	te.EXPECT().Extract(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(echoText).AnyTimes()
	fe := llmmocks.NewMockFieldExtractor(ctrl)
	fe.EXPECT().ExtractFields(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req llm.ExtractRequest) (string, error) {
			if req.Filename == "slow.pdf" {
				time.Sleep(50 * time.Millisecond)
			}
			return fmt.Sprintf(`{"name": %q, "experience_years": "3"}`, req.Filename), nil
		}).AnyTimes()

	got := NewCollector(te, fe, nil, WithWorkers(4)).Collect(context.Background(), docs(names...))
	require.Len(t, got, len(names))
	for i, n := range names {
		assert.Equal(t, n, got[i].Name)
		assert.Equal(t, n, got[i].SourceFile)
		assert.Equal(t, 3.0, got[i].ExperienceYears)
	}
}

func TestCollectCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// no calls expected
	te := extractmocks.NewMockTextExtractor(ctrl)
	fe := llmmocks.NewMockFieldExtractor(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	got, outcomes := NewCollector(te, fe, nil, WithMetrics(m)).CollectWithOutcomes(ctx, docs("a.pdf", "b.pdf"))
	require.Len(t, got, 2)
	for i := range got {
		assert.Equal(t, constants.DocumentStatusSkipped, outcomes[i].Status)
		assert.Equal(t, "", got[i].Name)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.documents.WithLabelValues(string(constants.DocumentStatusSkipped))))
}

func TestCollectStopsIssuingAfterCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	te := extractmocks.NewMockTextExtractor(ctrl)
	te.EXPECT().Extract(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(echoText).AnyTimes()
	fe := llmmocks.NewMockFieldExtractor(ctrl)
	// the first call cancels the batch but is allowed to finish
	fe.EXPECT().ExtractFields(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req llm.ExtractRequest) (string, error) {
			cancel()
			return `{"name": "first"}`, nil
		}).Times(1)

	got, outcomes := NewCollector(te, fe, nil, WithWorkers(1)).CollectWithOutcomes(ctx, docs("a.pdf", "b.pdf", "c.pdf"))
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, constants.DocumentStatusParsed, outcomes[0].Status)
	assert.Equal(t, constants.DocumentStatusSkipped, outcomes[1].Status)
	assert.Equal(t, constants.DocumentStatusSkipped, outcomes[2].Status)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Outcome{
		{Status: constants.DocumentStatusParsed},
		{Status: constants.DocumentStatusParsed},
		{Status: constants.DocumentStatusLLMFailed},
		{Status: constants.DocumentStatusSkipped},
	})
	assert.Equal(t, BatchStats{Documents: 4, Parsed: 2, LLMFailed: 1, Skipped: 1}, s)
	assert.Equal(t, 2, s.Failed())
}
