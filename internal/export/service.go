package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/candidate-search/constants"
	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
)

const sheetName = "Candidates"

// Written reports where a run's outputs landed.
type Written struct {
	JSONPath string
	CSVPath  string
	XLSXPath string
	Rows     int
}

// Service persists a candidate collection as JSON, CSV and optionally XLSX.
// Every write replaces the previous output in full.
type Service struct {
	cfg    common.OutputConfig
	logger *slog.Logger
}

func NewService(cfg common.OutputConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, logger: logger}
}

// Write renders records in every configured form and writes them under the output dir.
func (s *Service) Write(ctx context.Context, records []entity.Candidate) (Written, error) {
	start := time.Now()
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return Written{}, fmt.Errorf("create output dir: %w", err)
	}

	var out Written
	rows := Flatten(records)
	out.Rows = len(rows)

	var jsonBuf bytes.Buffer
	if err := WriteJSON(&jsonBuf, records); err != nil {
		return out, err
	}
	out.JSONPath = filepath.Join(s.cfg.Dir, s.cfg.JSONName)
	if err := replaceFile(out.JSONPath, jsonBuf.Bytes()); err != nil {
		return out, err
	}

	var csvBuf bytes.Buffer
	if err := WriteCSV(&csvBuf, rows); err != nil {
		return out, err
	}
	out.CSVPath = filepath.Join(s.cfg.Dir, s.cfg.CSVName)
	if err := replaceFile(out.CSVPath, csvBuf.Bytes()); err != nil {
		return out, err
	}

	if s.cfg.WriteXLSX {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		xlsx, err := BuildXLSX(rows)
		if err != nil {
			return out, err
		}
		out.XLSXPath = filepath.Join(s.cfg.Dir, s.cfg.XLSXName)
		if err := replaceFile(out.XLSXPath, xlsx); err != nil {
			return out, err
		}
	}

	s.logger.Info("export.write.ok",
		"rows", out.Rows,
		"json", out.JSONPath,
		"csv", out.CSVPath,
		"xlsx", out.XLSXPath,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// BuildXLSX returns a workbook (as bytes) with the flat table on a single sheet.
func BuildXLSX(rows []entity.CandidateRow) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if index, _ := f.GetSheetIndex(sheetName); index == -1 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range constants.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	for r, row := range rows {
		for c, col := range constants.Columns {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			var v any
			if col == constants.ColExperienceYears {
				v = row.ExperienceYears
			} else {
				v, _ = row.Get(col)
			}
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	// Widen the free-text columns
	_ = f.SetColWidth(sheetName, "A", "B", 28) // name, email
	_ = f.SetColWidth(sheetName, "C", "C", 48) // education
	_ = f.SetColWidth(sheetName, "E", "F", 30) // role, company
	_ = f.SetColWidth(sheetName, "G", "J", 40) // list columns
	_ = f.SetColWidth(sheetName, "K", "K", 36) // source file

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadXLSX reads the candidate sheet back into rows.
func ReadXLSX(data []byte) ([]entity.CandidateRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xlsx open: %w", err)
	}
	defer func() { _ = f.Close() }()

	grid, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("xlsx rows: %w", err)
	}
	if len(grid) == 0 {
		return []entity.CandidateRow{}, nil
	}
	rows := make([]entity.CandidateRow, 0, len(grid)-1)
	for _, rec := range grid[1:] {
		rows = append(rows, entity.RowFromValues(grid[0], rec))
	}
	return rows, nil
}

// replaceFile writes data next to path and renames it into place.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
