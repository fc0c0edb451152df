package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ChunkerConfig controls how long-form content is split for embedding.
type ChunkerConfig struct {
	MinChunkSize int
	MaxChunkSize int
	MaxTags      int
}

// DefaultChunkerConfig provides sane defaults for chunking.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MinChunkSize: 50,
		MaxChunkSize: 2000,
		MaxTags:      8,
	}
}

// ContentChunk is an intermediate unit produced during conversion. Context
// carries the company/source identifier injected so the chunk stays
// self-describing once embedded in isolation; Content is the raw slice of
// the original document.
type ContentChunk struct {
	Title   string
	Content string
	Context string
	Tags    []string
}

// EmbeddingText returns the text embedded for this chunk, context prefix
// included.
func (c ContentChunk) EmbeddingText() string {
	if c.Context == "" {
		return c.Content
	}
	return c.Context + "\n\n" + c.Content
}

var (
	numberedHeadingRe = regexp.MustCompile(`^\d+[.)]\s+\S`)
	bulletItemRe      = regexp.MustCompile(`^[-*•]\s+(.+)$`)
	numberedItemRe    = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
)

// ChunkContent splits one content blob into chunks using an ordered fallback
// chain: header split, paragraph split, size-bounded sentence packing, then
// the whole input as a single chunk. It never fails for well-formed string
// input; an empty string yields zero chunks.
func ChunkContent(content, context string, cfg ChunkerConfig) []ContentChunk {
	clean := strings.TrimSpace(content)
	if clean == "" {
		return nil
	}
	if cfg.MinChunkSize <= 0 || cfg.MaxChunkSize <= 0 {
		cfg = DefaultChunkerConfig()
	}

	chunks := splitByHeaders(clean, context, cfg)
	if len(chunks) > 1 {
		return chunks
	}

	paragraphs := splitByParagraphs(clean, context, cfg)
	if len(paragraphs) > 1 {
		return paragraphs
	}

	if len(clean) > cfg.MaxChunkSize {
		packed := packSentences(clean, context, cfg)
		if len(packed) > 0 {
			return packed
		}
	}

	if len(chunks) == 1 {
		return chunks
	}

	return []ContentChunk{{
		Title:   "Overview",
		Content: clean,
		Context: context,
		Tags:    deriveTags("", clean, cfg.MaxTags),
	}}
}

// splitByHeaders detects structural headers (markdown #, numbered headings,
// colon-terminated title lines). Header-only sections shorter than the
// minimum size are dropped rather than kept empty.
func splitByHeaders(content, context string, cfg ChunkerConfig) []ContentChunk {
	lines := strings.Split(content, "\n")

	var chunks []ContentChunk
	var title string
	var body []string
	sawHeader := false

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		if len(text) < cfg.MinChunkSize {
			return
		}
		chunks = append(chunks, ContentChunk{
			Title:   title,
			Content: text,
			Context: context,
			Tags:    deriveTags(title, text, cfg.MaxTags),
		})
	}

	for _, line := range lines {
		if headerTitle, ok := parseHeader(line); ok {
			flush()
			title = headerTitle
			sawHeader = true
			continue
		}
		body = append(body, line)
	}
	flush()

	if !sawHeader {
		return nil
	}
	return chunks
}

// parseHeader reports whether a line is a structural header and returns its
// title text.
func parseHeader(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}

	if strings.HasPrefix(trimmed, "#") {
		return strings.TrimSpace(strings.TrimLeft(trimmed, "#")), true
	}

	if numberedHeadingRe.MatchString(trimmed) && len(trimmed) < 80 && !strings.ContainsAny(trimmed[len(trimmed)-1:], ".!?") {
		idx := strings.IndexFunc(trimmed, unicode.IsSpace)
		return strings.TrimSpace(trimmed[idx:]), true
	}

	// Colon-terminated title lines like "Pricing:".
	if strings.HasSuffix(trimmed, ":") && len(trimmed) <= 60 && !strings.ContainsAny(trimmed[:len(trimmed)-1], ".!?:") {
		return strings.TrimSuffix(trimmed, ":"), true
	}

	return "", false
}

func splitByParagraphs(content, context string, cfg ChunkerConfig) []ContentChunk {
	parts := regexp.MustCompile(`\n\s*\n`).Split(content, -1)

	var chunks []ContentChunk
	idx := 0
	for _, part := range parts {
		text := strings.TrimSpace(part)
		if len(text) < cfg.MinChunkSize {
			continue
		}
		idx++
		chunks = append(chunks, ContentChunk{
			Title:   fmt.Sprintf("Section %d", idx),
			Content: text,
			Context: context,
			Tags:    deriveTags("", text, cfg.MaxTags),
		})
	}
	return chunks
}

// packSentences accumulates sentences into chunks bounded by
// [MinChunkSize, MaxChunkSize]; only the trailing chunk may fall below the
// minimum.
func packSentences(content, context string, cfg ChunkerConfig) []ContentChunk {
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []ContentChunk
	var buf strings.Builder

	flush := func() {
		text := strings.TrimSpace(buf.String())
		buf.Reset()
		if text == "" {
			return
		}
		chunks = append(chunks, ContentChunk{
			Title:   fmt.Sprintf("Part %d", len(chunks)+1),
			Content: text,
			Context: context,
			Tags:    deriveTags("", text, cfg.MaxTags),
		})
	}

	for _, sentence := range sentences {
		if buf.Len() > 0 && buf.Len()+len(sentence)+1 > cfg.MaxChunkSize && buf.Len() >= cfg.MinChunkSize {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(sentence)
	}
	flush()

	return chunks
}

func splitSentences(content string) []string {
	var sentences []string
	var buf strings.Builder
	for _, r := range content {
		buf.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(buf.String()); s != "" {
				sentences = append(sentences, s)
			}
			buf.Reset()
		}
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// deriveTags extracts tags from document structure alone: header words,
// bullet items, and numbered items. No business vocabulary is baked in, so
// derivation generalizes across organizations.
func deriveTags(headerText, body string, max int) []string {
	if max <= 0 {
		max = 8
	}

	seen := make(map[string]struct{})
	var tags []string

	add := func(candidate string) {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		candidate = strings.Trim(candidate, ".,;:!?\"'()")
		if len(candidate) < 3 || len(tags) >= max {
			return
		}
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		tags = append(tags, candidate)
	}

	for _, word := range strings.Fields(headerText) {
		add(word)
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := bulletItemRe.FindStringSubmatch(trimmed); m != nil {
			add(firstWords(m[1], 2))
		} else if m := numberedItemRe.FindStringSubmatch(trimmed); m != nil {
			add(firstWords(m[1], 2))
		}
	}

	return tags
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
