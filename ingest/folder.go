package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"go.uber.org/zap"
)

// DocumentResult is the outcome of processing one file of a folder.
type DocumentResult struct {
	Path     string
	Document *CourseDocument
	Err      error
}

// ProcessFolder parses every transcript directly under dir concurrently.
// A failing document is reported in its result and never aborts the others.
// Results are ordered by path.
func (p *Processor) ProcessFolder(ctx context.Context, dir string) ([]DocumentResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsTranscript(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	tasks := make([]<-chan async.Result[*CourseDocument], 0, len(paths))
	for _, path := range paths {
		tasks = append(tasks, async.Go(func() (*CourseDocument, error) {
			return p.ProcessFile(ctx, path)
		}))
	}

	results := make([]DocumentResult, len(paths))
	for i, task := range tasks {
		doc, err := async.Await(task)
		results[i] = DocumentResult{Path: paths[i], Document: doc, Err: err}

		if err != nil {
			logger.Error("Failed to process course document", zap.String("path", paths[i]), zap.Error(err))
			continue
		}
		logger.Info("Processed course document",
			zap.String("path", paths[i]),
			zap.String("course", doc.Course.Title),
			zap.Int("lessons", len(doc.Course.Lessons)),
			zap.Int("chunks", len(doc.Chunks)))
	}
	return results, nil
}
