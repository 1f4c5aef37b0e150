package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
	"github.com/joseph-ayodele/candidate-search/internal/export"
	"github.com/joseph-ayodele/candidate-search/internal/table"
)

// RowLister is a store holding the latest flat table.
type RowLister interface {
	List(ctx context.Context) ([]entity.CandidateRow, error)
}

// Loader refreshes a table from the SQL store when one is configured, or from the
// exported file at Path (.csv, .xlsx or .json) otherwise.
type Loader struct {
	table  *table.Table
	store  RowLister
	path   string
	logger *slog.Logger
}

func NewLoader(tbl *table.Table, store RowLister, path string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{table: tbl, store: store, path: path, logger: logger}
}

// Reload replaces the table snapshot. On error the previous snapshot is kept.
func (l *Loader) Reload(ctx context.Context) (int, error) {
	start := time.Now()
	rows, source, err := l.read(ctx)
	if err != nil {
		l.logger.Error("server.reload.failed", "source", source, "err", err)
		return 0, err
	}
	l.table.Replace(rows)
	l.logger.Info("server.reload.ok",
		"source", source,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return len(rows), nil
}

func (l *Loader) read(ctx context.Context) ([]entity.CandidateRow, string, error) {
	if l.store != nil {
		rows, err := l.store.List(ctx)
		return rows, "store", err
	}
	rows, err := ReadTableFile(l.path)
	return rows, l.path, err
}

// ReadTableFile reads an exported table; the format follows the file extension.
func ReadTableFile(path string) ([]entity.CandidateRow, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.NewAppError("TABLE_NOT_FOUND", "no candidate table at "+path, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return export.ReadCSV(bytes.NewReader(data))
	case ".xlsx":
		return export.ReadXLSX(data)
	case ".json":
		records, err := export.ReadJSON(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return export.Flatten(records), nil
	default:
		return nil, common.NewAppError("INVALID_TABLE", "unsupported table format "+path, common.ErrInvalidInput)
	}
}
