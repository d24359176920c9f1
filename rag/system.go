// Package rag ties ingestion, retrieval and the query agent together.
package rag

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/SaiNageswarS/course-rag/agent"
	"github.com/SaiNageswarS/course-rag/ingest"
	"github.com/SaiNageswarS/course-rag/retrieval"
	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// System is the ingestion and query boundary.
type System struct {
	processor *ingest.Processor
	index     *retrieval.Index
	agent     *agent.Agent
	closers   []io.Closer
}

func New(processor *ingest.Processor, index *retrieval.Index, ag *agent.Agent, closers ...io.Closer) *System {
	return &System{processor: processor, index: index, agent: ag, closers: closers}
}

func (s *System) Index() *retrieval.Index {
	return s.index
}

// AddCourseDocument ingests one transcript and returns the course and the
// number of chunks stored.
func (s *System) AddCourseDocument(ctx context.Context, path string) (*schema.Course, int, error) {
	doc, err := s.processor.ProcessFile(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	if err := s.index.AddCourse(ctx, doc.Course, doc.Chunks); err != nil {
		return nil, 0, fmt.Errorf("index %s: %w", path, err)
	}

	logger.Info("Added course",
		zap.String("course", doc.Course.Title),
		zap.Int("lessons", len(doc.Course.Lessons)),
		zap.Int("chunks", len(doc.Chunks)))
	return doc.Course, len(doc.Chunks), nil
}

// FolderSummary reports what a folder ingestion did.
type FolderSummary struct {
	Courses int
	Chunks  int
	Skipped []string // titles already present
	Failed  []ingest.DocumentResult
}

// AddCourseFolder ingests every transcript in dir. With skipExisting,
// courses whose title is already indexed are left untouched; otherwise they
// are re-upserted. A failing document is recorded and the rest continue.
func (s *System) AddCourseFolder(ctx context.Context, dir string, skipExisting bool) (*FolderSummary, error) {
	results, err := s.processor.ProcessFolder(ctx, dir)
	if err != nil {
		return nil, err
	}

	summary := &FolderSummary{}
	for _, r := range results {
		if r.Err != nil {
			summary.Failed = append(summary.Failed, r)
			continue
		}

		title := r.Document.Course.Title
		if skipExisting {
			exists, err := s.index.HasCourse(ctx, title)
			if err != nil {
				return summary, fmt.Errorf("check course %s: %w", title, err)
			}
			if exists {
				logger.Info("Course already exists, skipping", zap.String("course", title))
				summary.Skipped = append(summary.Skipped, title)
				continue
			}
		}

		if err := s.index.AddCourse(ctx, r.Document.Course, r.Document.Chunks); err != nil {
			r.Err = fmt.Errorf("index %s: %w", r.Path, err)
			logger.Error("Failed to index course", zap.String("course", title), zap.Error(err))
			summary.Failed = append(summary.Failed, r)
			continue
		}
		summary.Courses++
		summary.Chunks += len(r.Document.Chunks)
	}

	logger.Info("Ingested course folder",
		zap.String("dir", dir),
		zap.Int("courses", summary.Courses),
		zap.Int("chunks", summary.Chunks),
		zap.Int("skipped", len(summary.Skipped)),
		zap.Int("failed", len(summary.Failed)))
	return summary, nil
}

// Query answers a question within a session. An empty sessionID starts a
// new session whose id is returned.
func (s *System) Query(ctx context.Context, question, sessionID string) (string, []schema.Source, string, error) {
	res, err := s.Ask(ctx, &agent.NoOpProgressReporter{}, &schema.GenerateAnswerRequest{Question: question, SessionId: sessionID})
	if err != nil {
		return "", nil, sessionID, err
	}
	return res.Answer, res.Sources, res.SessionId, nil
}

// Ask is Query with progress reporting and the full result.
func (s *System) Ask(ctx context.Context, reporter agent.ProgressReporter, req *schema.GenerateAnswerRequest) (*schema.StreamComplete, error) {
	if s.agent == nil {
		return nil, errors.New("query agent is not configured")
	}
	return s.agent.Execute(ctx, reporter, req)
}

func (s *System) CourseAnalytics(ctx context.Context) (schema.CourseAnalytics, error) {
	titles, err := s.index.ExistingCourseTitles(ctx)
	if err != nil {
		return schema.CourseAnalytics{}, err
	}
	return schema.CourseAnalytics{TotalCourses: len(titles), CourseTitles: titles}, nil
}

// Clear removes every course from both collections.
func (s *System) Clear(ctx context.Context) error {
	return s.index.Clear(ctx)
}

func (s *System) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
