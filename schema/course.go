package schema

import "fmt"

// Lesson is one numbered lesson inside a course transcript.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course is the parsed header of a transcript. Title is the only key shared
// by the catalog and content collections, so two courses must never share one.
type Course struct {
	Title      string   `json:"title"`
	Instructor string   `json:"instructor,omitempty"`
	CourseLink string   `json:"course_link,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Lesson returns the lesson with the given number, if present.
func (c *Course) Lesson(number int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l, true
		}
	}
	return Lesson{}, false
}

// Chunk is an immutable window of lesson text used as the unit of search.
type Chunk struct {
	Content      string `json:"content"`
	CourseTitle  string `json:"course_title"`
	LessonNumber int    `json:"lesson_number"`
	Index        int    `json:"chunk_index"`
}

// ID is the content-collection key for the chunk.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s_%d", c.CourseTitle, c.Index)
}

// ChunkMetadata is the filterable metadata stored alongside each chunk.
type ChunkMetadata struct {
	CourseTitle  string `json:"course_title"`
	LessonNumber int    `json:"lesson_number"`
	ChunkIndex   int    `json:"chunk_index"`
}

// SearchResults is the transient outcome of one retrieval call.
// Error is set when the request could not be served (e.g. an unresolved
// course name); it is distinct from a valid search with no matches.
type SearchResults struct {
	Documents []string        `json:"documents"`
	Metadata  []ChunkMetadata `json:"metadata"`
	Distances []float64       `json:"distances"`
	Error     string          `json:"error,omitempty"`
}

func (r SearchResults) IsEmpty() bool {
	return len(r.Documents) == 0
}

// SearchResultsError builds an empty result carrying an error message.
func SearchResultsError(msg string) SearchResults {
	return SearchResults{Error: msg}
}

// Source is a citation displayed next to an answer.
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// CourseAnalytics summarises what has been ingested.
type CourseAnalytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}
