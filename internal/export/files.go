package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joseph-ayodele/candidate-search/constants"
	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
)

// WriteJSON writes the structured collection as an indented JSON array.
func WriteJSON(w io.Writer, records []entity.Candidate) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Structured(records)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// ReadJSON reads a collection written by WriteJSON.
func ReadJSON(r io.Reader) ([]entity.Candidate, error) {
	var out []entity.Candidate
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return Structured(out), nil
}

// WriteCSV writes a header of constants.Columns followed by one line per row.
func WriteCSV(w io.Writer, rows []entity.CandidateRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(constants.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadCSV loads a flat table. Columns may appear in any order and unknown columns are
// ignored, but every column in constants.Columns must be present.
func ReadCSV(r io.Reader) ([]entity.CandidateRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, common.NewAppError("INVALID_TABLE", "csv is empty", common.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, common.NewAppError("INVALID_TABLE",
			"csv missing columns: "+strings.Join(missing, ", "), common.ErrInvalidInput)
	}

	rows := []entity.CandidateRow{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, entity.RowFromValues(header, rec))
	}
	return rows, nil
}

func missingColumns(header []string) []string {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[h] = struct{}{}
	}
	var missing []string
	for _, c := range constants.Columns {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
