package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Document is one resume file read from a source.
type Document struct {
	Name    string // base name, recorded as the candidate's source_file
	Path    string // local path or object key
	Data    []byte
	HashHex string // sha256 of Data
}

// DirStats summarizes a source listing.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// Source lists the documents a batch run should process, in a stable order.
type Source interface {
	List(ctx context.Context) ([]Document, DirStats, error)
}

// NewDocument fills in the content hash.
func NewDocument(name, path string, data []byte) Document {
	sum := sha256.Sum256(data)
	return Document{Name: name, Path: path, Data: data, HashHex: hex.EncodeToString(sum[:])}
}
