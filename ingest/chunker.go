package ingest

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// ChunkText splits lesson text into sentence-aligned windows of at most
// chunkSize characters. Each window after the first starts with the trailing
// sentences of the previous one, as long as they fit in chunkOverlap
// characters. A sentence longer than chunkSize forms its own chunk.
func ChunkText(text string, chunkSize, chunkOverlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}

	sentences := splitSentences(normalizeWhitespace(text))
	var chunks []string

	for i := 0; i < len(sentences); {
		size := 0
		end := i
		for j := i; j < len(sentences); j++ {
			addition := utf8.RuneCountInString(sentences[j])
			if j > i {
				addition++ // joining space
			}
			if size+addition > chunkSize && j > i {
				break
			}
			size += addition
			end = j + 1
		}

		window := sentences[i:end]
		chunks = append(chunks, strings.Join(window, " "))
		if end == len(sentences) {
			break
		}

		next := end - overlapSentences(window, chunkOverlap)
		i = max(next, i+1)
	}

	return chunks
}

// overlapSentences counts how many trailing sentences of the window fit in
// the overlap budget.
func overlapSentences(window []string, budget int) int {
	if budget == 0 {
		return 0
	}

	size, count := 0, 0
	for k := len(window) - 1; k >= 0; k-- {
		length := utf8.RuneCountInString(window[k])
		if k < len(window)-1 {
			length++
		}
		if size+length > budget {
			break
		}
		size += length
		count++
	}

	// never restart at the same sentence we started from
	if count == len(window) {
		count--
	}
	return count
}
