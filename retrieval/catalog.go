package retrieval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/SaiNageswarS/course-rag/vectorstore"
)

// GetCourseOutline returns the stored course with its lessons.
func (idx *Index) GetCourseOutline(ctx context.Context, title string) (*schema.Course, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.courseLocked(ctx, title)
}

func (idx *Index) courseLocked(ctx context.Context, title string) (*schema.Course, bool, error) {
	records, err := idx.catalog.Get(ctx, []string{title})
	if err != nil {
		return nil, false, fmt.Errorf("get course %s: %w", title, err)
	}
	if len(records) == 0 {
		return nil, false, nil
	}

	course, err := courseFromRecord(records[0])
	if err != nil {
		return nil, false, err
	}
	return course, true, nil
}

// GetCourseLink returns the course link, empty when unknown.
func (idx *Index) GetCourseLink(ctx context.Context, title string) (string, error) {
	course, found, err := idx.GetCourseOutline(ctx, title)
	if err != nil || !found {
		return "", err
	}
	return course.CourseLink, nil
}

// GetLessonLink returns the link of one lesson, empty when unknown.
func (idx *Index) GetLessonLink(ctx context.Context, title string, lessonNumber int) (string, error) {
	course, found, err := idx.GetCourseOutline(ctx, title)
	if err != nil || !found {
		return "", err
	}
	lesson, _ := course.Lesson(lessonNumber)
	return lesson.Link, nil
}

func (idx *Index) HasCourse(ctx context.Context, title string) (bool, error) {
	_, found, err := idx.GetCourseOutline(ctx, title)
	return found, err
}

// ExistingCourseTitles lists catalog titles in lexicographic order.
func (idx *Index) ExistingCourseTitles(ctx context.Context) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	records, err := idx.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	titles := make([]string, len(records))
	for i, r := range records {
		titles[i] = r.ID
	}
	return titles, nil
}

func (idx *Index) CourseCount(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.catalog.Count(ctx)
}

// Clear removes every course and chunk.
func (idx *Index) Clear(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	defer idx.resolved.Flush()

	if err := idx.catalog.Reset(ctx); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	if err := idx.content.Reset(ctx); err != nil {
		return fmt.Errorf("clear content: %w", err)
	}
	return nil
}

func courseFromRecord(r vectorstore.Record) (*schema.Course, error) {
	course := &schema.Course{
		Title:      r.ID,
		Instructor: vectorstore.StringValue(r.Metadata, "instructor"),
		CourseLink: vectorstore.StringValue(r.Metadata, "course_link"),
	}

	if raw := vectorstore.StringValue(r.Metadata, "lessons_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &course.Lessons); err != nil {
			return nil, fmt.Errorf("decode lessons of %s: %w", r.ID, err)
		}
	}
	return course, nil
}
