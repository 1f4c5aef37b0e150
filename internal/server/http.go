package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/export"
	"github.com/joseph-ayodele/candidate-search/internal/table"
)

const requestIDHeader = "X-Request-ID"

// Dashboard serves the filter view over the loaded candidate table.
type Dashboard struct {
	table  *table.Table
	loader *Loader
	logger *slog.Logger
}

func NewDashboard(tbl *table.Table, loader *Loader, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{table: tbl, loader: loader, logger: logger}
}

// RouterConfig controls the middleware of NewRouter.
type RouterConfig struct {
	CORSOrigin string
	Registry   *prometheus.Registry // nil disables /metrics and request metrics
}

func NewRouter(d *Dashboard, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID())

	corsCfg := cors.DefaultConfig()
	if cfg.CORSOrigin == "" || cfg.CORSOrigin == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSOrigin}
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", requestIDHeader}
	corsCfg.ExposeHeaders = []string{requestIDHeader}
	r.Use(cors.New(corsCfg))

	if cfg.Registry != nil {
		r.Use(NewMetricsBuilder(cfg.Registry).Build())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	r.GET("/health", d.Health)
	api := r.Group("/api/v1")
	{
		api.GET("/summary", d.Summary)
		api.GET("/candidates", d.Candidates)
		api.GET("/candidates.csv", d.CandidatesCSV)
		api.GET("/distribution", d.Distribution)
		api.POST("/reload", d.Reload)
	}
	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (d *Dashboard) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "candidates": d.table.Len()})
}

// Summary returns the facet options and experience bounds for the filter controls.
func (d *Dashboard) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, d.table.Summary())
}

// Candidates returns the filtered table.
func (d *Dashboard) Candidates(c *gin.Context) {
	q, ok := d.query(c)
	if !ok {
		return
	}
	rows := d.table.Query(q)
	cols := columnsFor(c.Query(paramFields))
	c.JSON(http.StatusOK, gin.H{
		"total":   d.table.Len(),
		"matched": len(rows),
		"columns": cols,
		"rows":    project(rows, cols),
	})
}

// CandidatesCSV downloads the filtered table with the full column set.
func (d *Dashboard) CandidatesCSV(c *gin.Context) {
	q, ok := d.query(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", `attachment; filename="candidates.csv"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, d.table.Query(q)); err != nil {
		d.logger.Error("server.csv.failed", "request_id", common.RequestIDFromContext(c.Request.Context()), "err", err)
	}
}

// Distribution returns the chart aggregates of the filtered table.
func (d *Dashboard) Distribution(c *gin.Context) {
	q, ok := d.query(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, table.Distribute(d.table.Query(q)))
}

// Reload re-reads the table from its source.
func (d *Dashboard) Reload(c *gin.Context) {
	start := time.Now()
	n, err := d.loader.Reload(c.Request.Context())
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": n, "elapsed_ms": time.Since(start).Milliseconds()})
}

func (d *Dashboard) query(c *gin.Context) (table.Query, bool) {
	q, err := ParseQuery(c.Request.URL.Query())
	if err != nil {
		d.fail(c, err)
		return table.Query{}, false
	}
	return q, true
}

func (d *Dashboard) fail(c *gin.Context, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		d.logger.Error("server.request.failed",
			"request_id", common.RequestIDFromContext(c.Request.Context()),
			"path", c.FullPath(),
			"err", err,
		)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrSourceNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
