package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
	"github.com/joseph-ayodele/candidate-search/internal/export"
	"github.com/joseph-ayodele/candidate-search/internal/table"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func fixtureRows() []entity.CandidateRow {
	return []entity.CandidateRow{
		{Name: "Ann", CurrentRole: "Portfolio Manager", CurrentCompany: "Alpha Capital", ExperienceYears: 12, Sectors: "Healthcare, Tech", Markets: "Us", Skills: "Python"},
		{Name: "Bob", CurrentRole: "Analyst", CurrentCompany: "Beta Partners", ExperienceYears: 3, Sectors: "Energy", Markets: "Europe, Us"},
		{Name: "Cy", CurrentRole: "Quant Analyst", CurrentCompany: "Gamma", ExperienceYears: 5, Sectors: "Tech", Markets: "Asia"},
	}
}

type stubStore struct {
	rows []entity.CandidateRow
	err  error
}

func (s stubStore) List(context.Context) ([]entity.CandidateRow, error) { return s.rows, s.err }

func newTestRouter(t *testing.T, store RowLister) (*gin.Engine, *table.Table) {
	t.Helper()
	tbl := table.New(fixtureRows())
	loader := NewLoader(tbl, store, filepath.Join(t.TempDir(), "missing.csv"), nil)
	r := NewRouter(NewDashboard(tbl, loader, nil), RouterConfig{Registry: prometheus.NewRegistry()})
	return r, tbl
}

func get(t *testing.T, r http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

type candidatesResponse struct {
	Total   int                 `json:"total"`
	Matched int                 `json:"matched"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

func TestCandidatesEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	testCases := []struct {
		name      string
		target    string
		wantCode  int
		wantNames []string
	}{
		{name: "no filters", target: "/api/v1/candidates", wantCode: http.StatusOK, wantNames: []string{"Ann", "Bob", "Cy"}},
		{name: "category repeated", target: "/api/v1/candidates?sectors=tech&sectors=energy", wantCode: http.StatusOK, wantNames: []string{"Ann", "Bob", "Cy"}},
		{name: "category comma", target: "/api/v1/candidates?markets=europe,asia", wantCode: http.StatusOK, wantNames: []string{"Bob", "Cy"}},
		{name: "categories and", target: "/api/v1/candidates?sectors=Tech&markets=Us", wantCode: http.StatusOK, wantNames: []string{"Ann"}},
		{name: "range inclusive", target: "/api/v1/candidates?min_years=3&max_years=5", wantCode: http.StatusOK, wantNames: []string{"Bob", "Cy"}},
		{name: "open range", target: "/api/v1/candidates?min_years=5", wantCode: http.StatusOK, wantNames: []string{"Ann", "Cy"}},
		{name: "role substring", target: "/api/v1/candidates?current_role=ANALYST", wantCode: http.StatusOK, wantNames: []string{"Bob", "Cy"}},
		{name: "company substring", target: "/api/v1/candidates?current_company=capital", wantCode: http.StatusOK, wantNames: []string{"Ann"}},
		{name: "empty result", target: "/api/v1/candidates?sectors=Crypto", wantCode: http.StatusOK, wantNames: []string{}},
		{name: "bad number", target: "/api/v1/candidates?min_years=abc", wantCode: http.StatusBadRequest},
		{name: "negative", target: "/api/v1/candidates?max_years=-1", wantCode: http.StatusBadRequest},
		{name: "inverted range", target: "/api/v1/candidates?min_years=10&max_years=2", wantCode: http.StatusBadRequest},
		{name: "bad fields", target: "/api/v1/candidates?fields=some", wantCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(t, r, tc.target)
			require.Equal(t, tc.wantCode, w.Code, w.Body.String())
			if tc.wantCode != http.StatusOK {
				return
			}
			var resp candidatesResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, 3, resp.Total)
			assert.Equal(t, len(tc.wantNames), resp.Matched)
			names := []string{}
			for _, row := range resp.Rows {
				names = append(names, row["name"])
			}
			assert.Equal(t, tc.wantNames, names)
		})
	}
}

func TestCandidatesFields(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	var resp candidatesResponse
	w := get(t, r, "/api/v1/candidates?current_company=gamma")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"name", "current_role", "current_company", "experience_years", "sectors", "markets"}, resp.Columns)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "5", resp.Rows[0]["experience_years"])
	_, hasEmail := resp.Rows[0]["email"]
	assert.False(t, hasEmail)

	w = get(t, r, "/api/v1/candidates?fields=all")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Columns, 11)
	assert.Contains(t, resp.Rows[0], "source_file")
}

func TestSummaryEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := get(t, r, "/api/v1/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var sum table.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 3.0, sum.ExperienceMin)
	assert.Equal(t, 12.0, sum.ExperienceMax)
	assert.Equal(t, []string{"Energy", "Healthcare", "Tech"}, sum.Facets["sectors"])
	assert.Equal(t, []string{"Asia", "Europe", "Us"}, sum.Facets["markets"])
}

func TestDistributionEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := get(t, r, "/api/v1/distribution?sectors=Tech")
	require.Equal(t, http.StatusOK, w.Code)

	var d table.Distribution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, []table.Count{{Label: "Tech", Count: 2}, {Label: "Healthcare", Count: 1}}, d.Categories["sectors"])
	assert.Equal(t, []table.Count{{Label: "5", Count: 1}, {Label: "12", Count: 1}}, d.Experience)
	require.Len(t, d.Binned, len(table.DefaultBinLabels))
	assert.Equal(t, table.Count{Label: "5-10", Count: 1}, d.Binned[2])
	assert.Equal(t, table.Count{Label: "10-15", Count: 1}, d.Binned[3])
}

func TestCandidatesCSVEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := get(t, r, "/api/v1/candidates.csv?markets=us")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")

	rows, err := export.ReadCSV(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ann", rows[0].Name)
	assert.Equal(t, "Bob", rows[1].Name)
}

func TestReloadEndpoint(t *testing.T) {
	r, tbl := newTestRouter(t, stubStore{rows: []entity.CandidateRow{{Name: "Dee"}}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, "Dee", tbl.Rows()[0].Name)
}

func TestReloadMissingFile(t *testing.T) {
	r, tbl := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	// the previous snapshot stays
	assert.Equal(t, 3, tbl.Len())
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := get(t, r, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	assert.JSONEq(t, `{"status":"ok","candidates":3}`, w.Body.String())

	w = get(t, r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/health",status_code="200"} 1`)
}

func TestRequestIDPropagates(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
}

func TestReadTableFile(t *testing.T) {
	dir := t.TempDir()
	rows := fixtureRows()

	var csvBuf bytes.Buffer
	require.NoError(t, export.WriteCSV(&csvBuf, rows))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.csv"), csvBuf.Bytes(), 0o644))

	xlsx, err := export.BuildXLSX(rows)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.xlsx"), xlsx, 0o644))

	var jsonBuf bytes.Buffer
	require.NoError(t, export.WriteJSON(&jsonBuf, []entity.Candidate{{Name: "Jo", Sectors: []string{"Tech"}}}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.json"), jsonBuf.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.txt"), []byte("x"), 0o644))

	testCases := []struct {
		name    string
		file    string
		want    int
		wantErr error
	}{
		{name: "csv", file: "t.csv", want: 3},
		{name: "xlsx", file: "t.xlsx", want: 3},
		{name: "json", file: "t.json", want: 1},
		{name: "missing", file: "nope.csv", wantErr: common.ErrNotFound},
		{name: "unsupported", file: "t.txt", wantErr: common.ErrInvalidInput},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReadTableFile(filepath.Join(dir, tc.file))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tc.want)
		})
	}
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(map[string][]string{
		"sectors":         {"Tech, Energy", " "},
		"skills":          {"python"},
		"current_role":    {" analyst "},
		"min_years":       {"2.5"},
		"unknown_column":  {"x"},
		"current_company": {""},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tech", "Energy"}, q.Categories["sectors"])
	assert.Equal(t, []string{"python"}, q.Categories["skills"])
	assert.Equal(t, map[string]string{"current_role": "analyst"}, q.Text)
	require.NotNil(t, q.MinYears)
	assert.Equal(t, 2.5, *q.MinYears)
	assert.Nil(t, q.MaxYears)

	_, err = ParseQuery(map[string][]string{"min_years": {"x"}, "max_years": {"-2"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "min_years")
	assert.Contains(t, err.Error(), "max_years")
}
