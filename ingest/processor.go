package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

var (
	titlePattern      = regexp.MustCompile(`(?i)^course title:\s*(.*)$`)
	linkPattern       = regexp.MustCompile(`(?i)^course link:\s*(.*)$`)
	instructorPattern = regexp.MustCompile(`(?i)^course instructor:\s*(.*)$`)
	lessonPattern     = regexp.MustCompile(`(?i)^lesson\s+(\d+)\s*:\s*(.*)$`)
	lessonLinkPattern = regexp.MustCompile(`(?i)^lesson link:\s*(.*)$`)
)

// CourseDocument is the parsed form of one transcript.
type CourseDocument struct {
	Course   *schema.Course
	Chunks   []schema.Chunk
	Warnings []error // lesson-level ParseErrors; the lessons were skipped
}

// Processor turns transcript text into a Course and its searchable chunks.
type Processor struct {
	ChunkSize    int
	ChunkOverlap int
	// PrefixCourseTitle adds "Course {title} " in front of every chunk.
	PrefixCourseTitle bool
}

func NewProcessor(chunkSize, chunkOverlap int) *Processor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = min(DefaultChunkOverlap, chunkSize/2)
	}
	return &Processor{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// ProcessFile reads a UTF-8 transcript from disk and parses it.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*CourseDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := p.ParseCourseDocument(path, string(data))
	if err != nil {
		return nil, err
	}

	for _, w := range doc.Warnings {
		logger.Error("Skipped lesson", zap.String("path", path), zap.Error(w))
	}
	return doc, nil
}

// ParseCourseDocument parses transcript text. name identifies the document
// in errors.
func (p *Processor) ParseCourseDocument(name, text string) (*CourseDocument, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(strings.TrimSpace(text), "\n")

	course := &schema.Course{}
	hasTitle := false

	// Metadata header: leading lines with known key prefixes.
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if m := titlePattern.FindStringSubmatch(line); m != nil {
			course.Title = strings.TrimSpace(m[1])
			hasTitle = true
		} else if m := linkPattern.FindStringSubmatch(line); m != nil {
			course.CourseLink = strings.TrimSpace(m[1])
		} else if m := instructorPattern.FindStringSubmatch(line); m != nil {
			course.Instructor = strings.TrimSpace(m[1])
		} else {
			break
		}
	}

	if !hasTitle || course.Title == "" {
		return nil, &ParseError{Path: name, Reason: "missing course title"}
	}

	doc := &CourseDocument{Course: course}
	sections := p.splitLessons(name, lines[i:], doc)

	chunkIndex := 0
	for _, sec := range sections {
		course.Lessons = append(course.Lessons, sec.lesson)

		for n, content := range ChunkText(sec.body, p.ChunkSize, p.ChunkOverlap) {
			if n == 0 {
				content = fmt.Sprintf("Lesson %d content: %s", sec.lesson.Number, content)
			}
			if p.PrefixCourseTitle {
				content = fmt.Sprintf("Course %s %s", course.Title, content)
			}
			doc.Chunks = append(doc.Chunks, schema.Chunk{
				Content:      content,
				CourseTitle:  course.Title,
				LessonNumber: sec.lesson.Number,
				Index:        chunkIndex,
			})
			chunkIndex++
		}
	}

	sort.SliceStable(course.Lessons, func(a, b int) bool {
		return course.Lessons[a].Number < course.Lessons[b].Number
	})
	return doc, nil
}

type lessonSection struct {
	lesson schema.Lesson
	body   string
}

func (p *Processor) splitLessons(name string, lines []string, doc *CourseDocument) []lessonSection {
	var (
		sections []lessonSection
		current  *lessonSection
		body     []string
		skipping bool
		seen     = map[int]bool{}
		preamble []string
		anyMark  bool
	)

	flush := func() {
		if current != nil {
			current.body = strings.TrimSpace(strings.Join(body, "\n"))
			sections = append(sections, *current)
		}
		current, body = nil, nil
	}

	for idx := 0; idx < len(lines); idx++ {
		line := strings.TrimSpace(lines[idx])

		// only numbered markers start a lesson; "Lesson learned: ..." is body text
		if m := lessonPattern.FindStringSubmatch(line); m != nil {
			anyMark = true
			flush()
			skipping = false

			number, err := strconv.Atoi(m[1])
			title := strings.TrimSpace(m[2])
			switch {
			case err != nil:
				doc.Warnings = append(doc.Warnings, &ParseError{Path: name, Lesson: line, Reason: "invalid lesson number"})
				skipping = true
				continue
			case seen[number]:
				doc.Warnings = append(doc.Warnings, &ParseError{Path: name, Lesson: line, Reason: fmt.Sprintf("duplicate lesson number %d", number)})
				skipping = true
				continue
			case title == "":
				doc.Warnings = append(doc.Warnings, &ParseError{Path: name, Lesson: line, Reason: "missing lesson title"})
				skipping = true
				continue
			}
			seen[number] = true

			current = &lessonSection{lesson: schema.Lesson{Number: number, Title: title}}
			if idx+1 < len(lines) {
				if lm := lessonLinkPattern.FindStringSubmatch(strings.TrimSpace(lines[idx+1])); lm != nil {
					current.lesson.Link = strings.TrimSpace(lm[1])
					idx++
				}
			}
			continue
		}

		switch {
		case skipping:
		case current != nil:
			body = append(body, line)
		case !anyMark:
			preamble = append(preamble, line)
		}
	}
	flush()

	// No markers at all: the body is lesson 0.
	if !anyMark {
		text := strings.TrimSpace(strings.Join(preamble, "\n"))
		if text != "" {
			sections = append(sections, lessonSection{
				lesson: schema.Lesson{Number: 0, Title: "Introduction"},
				body:   text,
			})
		}
	}
	return sections
}

// IsTranscript reports whether the file extension is one ProcessFolder reads.
func IsTranscript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}
