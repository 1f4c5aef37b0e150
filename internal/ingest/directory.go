package ingest

import (
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
)

// Directory reads resumes from a local folder.
type Directory struct {
	Root       string
	Exts       map[string]struct{}
	SkipHidden bool
	Recursive  bool
	logger     *slog.Logger
}

func NewDirectory(root string, skipHidden bool, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{Root: root, Exts: ExtSet(nil), SkipHidden: skipHidden, logger: logger}
}

// List walks Root in lexical order and reads every matching file. A missing root is
// reported as common.ErrSourceNotFound; unreadable files are counted and skipped.
func (d *Directory) List(ctx context.Context) ([]Document, DirStats, error) {
	start := time.Now()
	var stats DirStats
	if strings.TrimSpace(d.Root) == "" {
		return nil, stats, common.NewAppError("SOURCE_NOT_FOUND", "resume directory is not set", common.ErrSourceNotFound)
	}
	info, err := os.Stat(d.Root)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, stats, common.NewAppError("SOURCE_NOT_FOUND", "resume directory "+d.Root+" does not exist", common.ErrSourceNotFound)
	}
	if err != nil {
		return nil, stats, fmt.Errorf("stat %s: %w", d.Root, err)
	}

	exts := d.Exts
	if exts == nil {
		exts = ExtSet(nil)
	}

	var docs []Document
	err = filepath.WalkDir(d.Root, func(path string, e fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == d.Root {
			return walkErr
		}
		stats.Scanned++
		if walkErr != nil {
			d.logger.Warn("ingest.walk_error", "path", path, "error", walkErr)
			stats.Failed++
			return nil // continue walking
		}
		if e.IsDir() {
			if !d.Recursive || (d.SkipHidden && IsHidden(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.SkipHidden && IsHidden(path) {
			stats.Skipped++
			return nil
		}
		if !Allowed(path, exts) {
			stats.Skipped++
			return nil
		}
		stats.Matched++

		data, err := os.ReadFile(path)
		if err != nil {
			d.logger.Warn("ingest.read_error", "path", path, "error", err)
			stats.Failed++
			return nil
		}
		docs = append(docs, NewDocument(filepath.Base(path), path, data))
		return nil
	})
	if err != nil {
		return docs, stats, fmt.Errorf("walk: %w", err)
	}

	d.logger.Info("ingest.dir.ok",
		"root", d.Root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return docs, stats, nil
}
