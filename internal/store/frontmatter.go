package store

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

const frontMatterFence = "---\n"

type noteHeader struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	CreatedAt string `yaml:"createdAt,omitempty"`
	UpdatedAt string `yaml:"updatedAt,omitempty"`
}

func encodeNote(note Note) ([]byte, error) {
	header, err := yaml.Marshal(noteHeader{
		ID:        note.ID,
		Title:     note.Title,
		CreatedAt: formatTime(note.CreatedAt),
		UpdatedAt: formatTime(note.UpdatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("encode note header: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(frontMatterFence)
	buf.Write(header)
	buf.WriteString(frontMatterFence)
	buf.WriteString(note.Content)
	return buf.Bytes(), nil
}

// decodeNote parses a Markdown file with optional YAML front matter. Files
// without front matter take their id from slug and their title from the
// first level-one heading.
func decodeNote(data []byte, slug string) (Note, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")
	var header noteHeader
	body := text

	if strings.HasPrefix(text, frontMatterFence) {
		rest := text[len(frontMatterFence):]
		raw, content, ok := splitFrontMatter(rest)
		if ok {
			if err := yaml.Unmarshal([]byte(raw), &header); err != nil {
				return Note{}, fmt.Errorf("decode front matter: %w", err)
			}
			body = content
		}
	}

	note := Note{
		ID:        strings.TrimSpace(header.ID),
		Title:     strings.TrimSpace(header.Title),
		Content:   body,
		CreatedAt: parseTime(header.CreatedAt),
		UpdatedAt: parseTime(header.UpdatedAt),
	}
	if note.ID == "" {
		note.ID = slug
	}
	if note.Title == "" {
		note.Title = firstHeading(body)
	}
	if note.Title == "" {
		note.Title = slug
	}
	return note, nil
}

func splitFrontMatter(rest string) (header, body string, ok bool) {
	if strings.HasPrefix(rest, frontMatterFence) {
		return "", rest[len(frontMatterFence):], true
	}
	if idx := strings.Index(rest, "\n"+frontMatterFence); idx >= 0 {
		return rest[:idx+1], rest[idx+1+len(frontMatterFence):], true
	}
	if strings.HasSuffix(rest, "\n---") {
		return rest[:len(rest)-3], "", true
	}
	return "", "", false
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
