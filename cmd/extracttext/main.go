package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/extract"
	"github.com/joseph-ayodele/candidate-search/internal/llm"
)

// extracttext prints the cleaned text of one resume, and with -prompt the user prompt
// that would be sent to the model.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	args := os.Args[1:]
	prompt := false
	if len(args) > 0 && args[0] == "-prompt" {
		prompt = true
		args = args[1:]
	}
	if len(args) != 1 {
		logger.Error("usage", "cmd", "extracttext [-prompt] <resume.pdf|resume.docx|resume.txt>")
		os.Exit(2)
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	x := extract.NewExtractor(extract.ConfigFrom(cfg.Extract), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	res, err := x.Extract(ctx, filepath.Base(path), data)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	logger.Info("text extraction OK",
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"warnings", res.Warnings,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if prompt {
		fmt.Println(llm.BuildPrompt(llm.ExtractRequest{Text: res.Text, Filename: filepath.Base(path)}, cfg.Extract.MaxChars))
		return
	}
	fmt.Println(res.Text)
}
