package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/candidate-search/constants"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
)

const (
	candidatesTable = "candidates"
	positionColumn  = "position"
	insertBatchSize = 200
)

// CandidateRepository persists the flat candidate table of the latest run.
type CandidateRepository interface {
	ReplaceAll(ctx context.Context, rows []entity.CandidateRow) error
	List(ctx context.Context) ([]entity.CandidateRow, error)
	Count(ctx context.Context) (int, error)
}

// CandidateStore keeps one row per candidate, in collection order. Each run replaces
// the table content atomically; no history is kept.
type CandidateStore struct {
	drv    *entsql.Driver
	pool   *pgxpool.Pool // nil for sqlite
	logger *slog.Logger
}

var _ CandidateRepository = (*CandidateStore)(nil)

func newStore(drv *entsql.Driver, pool *pgxpool.Pool, logger *slog.Logger) *CandidateStore {
	return &CandidateStore{drv: drv, pool: pool, logger: logger}
}

// Dialect returns the ent dialect name of the underlying database.
func (s *CandidateStore) Dialect() string { return s.drv.Dialect() }

// Migrate creates the candidates table if it does not exist.
func (s *CandidateStore) Migrate(ctx context.Context) error {
	if err := s.drv.Exec(ctx, createTableDDL(s.drv.Dialect()), []any{}, nil); err != nil {
		return fmt.Errorf("create %s table: %w", candidatesTable, err)
	}
	return nil
}

// ReplaceAll deletes every stored row and inserts rows in one transaction.
func (s *CandidateStore) ReplaceAll(ctx context.Context, rows []entity.CandidateRow) error {
	start := time.Now()
	b := entsql.Dialect(s.drv.Dialect())

	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	rollback := func(err error) error {
		if rerr := tx.Rollback(); rerr != nil {
			s.logger.Error("failed to rollback", "error", rerr)
		}
		return err
	}

	query, args := b.Delete(candidatesTable).Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return rollback(fmt.Errorf("clear %s: %w", candidatesTable, err))
	}

	cols := append([]string{positionColumn}, constants.Columns...)
	for lo := 0; lo < len(rows); lo += insertBatchSize {
		hi := min(lo+insertBatchSize, len(rows))
		ins := b.Insert(candidatesTable).Columns(cols...)
		for i := lo; i < hi; i++ {
			ins.Values(rowArgs(i, rows[i])...)
		}
		query, args := ins.Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return rollback(fmt.Errorf("insert %s: %w", candidatesTable, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("repository.candidates.replaced",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// List returns the stored rows in the order they were written.
func (s *CandidateStore) List(ctx context.Context) ([]entity.CandidateRow, error) {
	b := entsql.Dialect(s.drv.Dialect())
	query, args := b.Select(constants.Columns...).
		From(b.Table(candidatesTable)).
		OrderBy(entsql.Asc(positionColumn)).
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		s.logger.Error("failed to list candidates", "error", err)
		return nil, fmt.Errorf("list %s: %w", candidatesTable, err)
	}
	defer rows.Close()

	out := []entity.CandidateRow{}
	for rows.Next() {
		var r entity.CandidateRow
		if err := rows.Scan(
			&r.Name,
			&r.Email,
			&r.Education,
			&r.ExperienceYears,
			&r.CurrentRole,
			&r.CurrentCompany,
			&r.InvestmentApproach,
			&r.Markets,
			&r.Sectors,
			&r.Skills,
			&r.SourceFile,
		); err != nil {
			return nil, fmt.Errorf("scan %s: %w", candidatesTable, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", candidatesTable, err)
	}
	return out, nil
}

// Count returns the number of stored rows.
func (s *CandidateStore) Count(ctx context.Context) (int, error) {
	b := entsql.Dialect(s.drv.Dialect())
	query, args := b.Select(entsql.Count("*")).From(b.Table(candidatesTable)).Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return 0, fmt.Errorf("count %s: %w", candidatesTable, err)
	}
	defer rows.Close()
	n, err := entsql.ScanInt(rows)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", candidatesTable, err)
	}
	return n, nil
}

// rowArgs must follow the order of positionColumn + constants.Columns.
func rowArgs(pos int, r entity.CandidateRow) []any {
	return []any{
		pos,
		r.Name,
		r.Email,
		r.Education,
		r.ExperienceYears,
		r.CurrentRole,
		r.CurrentCompany,
		r.InvestmentApproach,
		r.Markets,
		r.Sectors,
		r.Skills,
		r.SourceFile,
	}
}

func createTableDDL(d string) string {
	floatType := "REAL"
	if d == dialect.Postgres {
		floatType = "DOUBLE PRECISION"
	}
	return `CREATE TABLE IF NOT EXISTS "candidates" (
	"position" INTEGER PRIMARY KEY,
	"name" TEXT NOT NULL DEFAULT '',
	"email" TEXT NOT NULL DEFAULT '',
	"education" TEXT NOT NULL DEFAULT '',
	"experience_years" ` + floatType + ` NOT NULL DEFAULT 0,
	"current_role" TEXT NOT NULL DEFAULT '',
	"current_company" TEXT NOT NULL DEFAULT '',
	"investment_approach" TEXT NOT NULL DEFAULT '',
	"markets" TEXT NOT NULL DEFAULT '',
	"sectors" TEXT NOT NULL DEFAULT '',
	"skills" TEXT NOT NULL DEFAULT '',
	"source_file" TEXT NOT NULL DEFAULT ''
)`
}
