// Package chunking splits extracted FAQ text into retrievable chunks.
// Markdown headings delimit sections so a chunk never mixes two topics, and
// each chunk is tagged with the domain entities it mentions.
package chunking

import (
	"strings"

	"github.com/google/uuid"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
)

type Splitter struct {
	ChunkSize int
	Overlap   int

	entityTerms []string
}

func NewSplitter(chunkSize, overlap int, entityTerms []string) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize:   chunkSize,
		Overlap:     overlap,
		entityTerms: entityTerms,
	}
}

type section struct {
	title    string
	subtitle string
	body     strings.Builder
}

func (s *Splitter) Split(text string) []domain.DocumentChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []domain.DocumentChunk
	current := &section{}
	flush := func() {
		chunks = append(chunks, s.sectionChunks(current)...)
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "###"):
			flush()
			current = &section{
				title:    current.title,
				subtitle: headingTitle(trimmed),
			}
		case strings.HasPrefix(trimmed, "#"):
			flush()
			current = &section{title: headingTitle(trimmed)}
		default:
			current.body.WriteString(line)
			current.body.WriteString("\n")
		}
	}
	flush()
	return chunks
}

func (s *Splitter) sectionChunks(sec *section) []domain.DocumentChunk {
	body := strings.TrimSpace(sec.body.String())
	if body == "" {
		return nil
	}

	out := make([]domain.DocumentChunk, 0, len(body)/s.ChunkSize+1)
	for _, piece := range s.window(body) {
		out = append(out, domain.DocumentChunk{
			ID:      uuid.NewString(),
			Content: piece,
			Metadata: domain.ChunkMetadata{
				Section:    sec.title,
				Subsection: sec.subtitle,
				Entities:   s.entities(piece),
			},
		})
	}
	return out
}

// window slides a fixed-size rune window with overlap over one section body.
func (s *Splitter) window(text string) []string {
	runes := []rune(text)
	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func (s *Splitter) entities(text string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, term := range s.entityTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			found = append(found, term)
		}
	}
	return found
}

func headingTitle(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "# "))
}
