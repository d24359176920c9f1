// Package retrieval keeps two collections over one vector store: a course
// catalog used to resolve fuzzy course names, and the lesson content that
// is searched with course and lesson filters.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/SaiNageswarS/course-rag/vectorstore"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	CatalogCollection = "course_catalog"
	ContentCollection = "course_content"

	DefaultMaxResults = 5
)

// ResolutionError means a course name matched nothing in the catalog.
type ResolutionError struct {
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("No course found matching '%s'", e.Name)
}

type Options struct {
	// MaxResults is the default search limit.
	MaxResults int
	// MaxResolveDistance rejects catalog matches farther than this cosine
	// distance. Zero trusts the nearest course whatever its distance.
	MaxResolveDistance float64
	// ResolveCacheTTL bounds how long a name resolution is memoised.
	ResolveCacheTTL time.Duration
}

// Index is safe for concurrent use. Writes are exclusive; searches share.
type Index struct {
	catalog vectorstore.Collection
	content vectorstore.Collection
	opts    Options

	mu       sync.RWMutex
	resolved *cache.Cache
}

type resolution struct {
	title string
	found bool
}

func NewIndex(ctx context.Context, store vectorstore.Store, opts Options) (*Index, error) {
	catalog, err := store.Collection(ctx, CatalogCollection)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", CatalogCollection, err)
	}
	content, err := store.Collection(ctx, ContentCollection)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ContentCollection, err)
	}

	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.ResolveCacheTTL <= 0 {
		opts.ResolveCacheTTL = 10 * time.Minute
	}

	return &Index{
		catalog:  catalog,
		content:  content,
		opts:     opts,
		resolved: cache.New(opts.ResolveCacheTTL, 2*opts.ResolveCacheTTL),
	}, nil
}

// AddCourse stores the course in the catalog and its chunks in the content
// collection as one write. Content left from an earlier ingestion of the
// same title is removed first.
func (idx *Index) AddCourse(ctx context.Context, course *schema.Course, chunks []schema.Chunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.addCatalogLocked(ctx, course); err != nil {
		return err
	}

	removed, err := idx.content.Delete(ctx, vectorstore.Filter{"course_title": course.Title})
	if err != nil {
		return fmt.Errorf("replace content of %s: %w", course.Title, err)
	}
	if removed > 0 {
		logger.Info("Replaced course content",
			zap.String("course", course.Title),
			zap.Int("removed", removed),
			zap.Int("added", len(chunks)))
	}
	return idx.addContentLocked(ctx, chunks)
}

func (idx *Index) AddCourseCatalog(ctx context.Context, course *schema.Course) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.addCatalogLocked(ctx, course)
}

func (idx *Index) AddCourseContent(ctx context.Context, chunks []schema.Chunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.addContentLocked(ctx, chunks)
}

func (idx *Index) addCatalogLocked(ctx context.Context, course *schema.Course) error {
	if course == nil || course.Title == "" {
		return fmt.Errorf("course title is required")
	}

	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("encode lessons of %s: %w", course.Title, err)
	}

	record := vectorstore.Record{
		ID:   course.Title,
		Text: course.Title,
		Metadata: map[string]any{
			"title":        course.Title,
			"instructor":   course.Instructor,
			"course_link":  course.CourseLink,
			"lessons_json": string(lessonsJSON),
			"lesson_count": len(course.Lessons),
		},
	}

	// a new title can change what any cached name resolves to
	defer idx.resolved.Flush()

	if err := idx.catalog.Upsert(ctx, []vectorstore.Record{record}); err != nil {
		return fmt.Errorf("add course %s: %w", course.Title, err)
	}
	return nil
}

func (idx *Index) addContentLocked(ctx context.Context, chunks []schema.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{
			ID:   c.ID(),
			Text: c.Content,
			Metadata: map[string]any{
				"course_title":  c.CourseTitle,
				"lesson_number": c.LessonNumber,
				"chunk_index":   c.Index,
			},
		}
	}

	if err := idx.content.Upsert(ctx, records); err != nil {
		return fmt.Errorf("add content: %w", err)
	}
	return nil
}

// ResolveCourseName maps a partial or approximate course name to the
// nearest catalog title. found is false when the catalog is empty or the
// nearest title is beyond MaxResolveDistance.
func (idx *Index) ResolveCourseName(ctx context.Context, name string) (string, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.resolveLocked(ctx, name)
}

func (idx *Index) resolveLocked(ctx context.Context, name string) (string, bool, error) {
	if cached, ok := idx.resolved.Get(name); ok {
		r := cached.(resolution)
		return r.title, r.found, nil
	}

	hits, err := idx.catalog.Query(ctx, name, 1, nil)
	if err != nil {
		return "", false, err
	}

	r := resolution{}
	if len(hits) > 0 {
		best := hits[0]
		if idx.opts.MaxResolveDistance <= 0 || best.Distance <= idx.opts.MaxResolveDistance {
			r = resolution{title: best.ID, found: true}
		}
	}

	idx.resolved.Set(name, r, cache.DefaultExpiration)
	return r.title, r.found, nil
}

type SearchQuery struct {
	Query        string
	CourseName   string // optional, resolved against the catalog
	LessonNumber *int   // optional
	Limit        int    // 0 uses the index default
}

// Search runs a filtered similarity search over lesson content. An
// unresolvable course name yields an error result rather than an
// unfiltered search.
func (idx *Index) Search(ctx context.Context, q SearchQuery) schema.SearchResults {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	filter := vectorstore.Filter{}
	if q.CourseName != "" {
		title, found, err := idx.resolveLocked(ctx, q.CourseName)
		if err != nil {
			return schema.SearchResultsError(fmt.Sprintf("Search error: %v", err))
		}
		if !found {
			return schema.SearchResultsError((&ResolutionError{Name: q.CourseName}).Error())
		}
		filter["course_title"] = title
	}
	if q.LessonNumber != nil {
		filter["lesson_number"] = *q.LessonNumber
	}

	limit := q.Limit
	if limit <= 0 {
		limit = idx.opts.MaxResults
	}

	hits, err := idx.content.Query(ctx, q.Query, limit, filter)
	if err != nil {
		return schema.SearchResultsError(fmt.Sprintf("Search error: %v", err))
	}

	results := schema.SearchResults{
		Documents: make([]string, 0, len(hits)),
		Metadata:  make([]schema.ChunkMetadata, 0, len(hits)),
		Distances: make([]float64, 0, len(hits)),
	}
	for _, h := range hits {
		lesson, _ := vectorstore.IntValue(h.Metadata, "lesson_number")
		chunkIndex, _ := vectorstore.IntValue(h.Metadata, "chunk_index")

		results.Documents = append(results.Documents, h.Text)
		results.Metadata = append(results.Metadata, schema.ChunkMetadata{
			CourseTitle:  vectorstore.StringValue(h.Metadata, "course_title"),
			LessonNumber: lesson,
			ChunkIndex:   chunkIndex,
		})
		results.Distances = append(results.Distances, h.Distance)
	}
	return results
}
