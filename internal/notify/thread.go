package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Chunk splits text at line boundaries into pieces of at most maxLen
// characters. A single line longer than maxLen is cut.
func Chunk(text string, maxLen int) []string {
	text = strings.TrimRight(text, "\n ")
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimRight(cur.String(), "\n "); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}
	for _, line := range strings.Split(text, "\n") {
		line = truncate(line, maxLen)
		if utf8.RuneCountInString(cur.String())+utf8.RuneCountInString(line) > maxLen {
			flush()
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	flush()
	return chunks
}

// Thread posts text in chunks sized for ch, each chunk replying to the
// previous one, and returns the id of the last message. The first chunk
// replies to replyTo when it is set.
func Thread(ctx context.Context, ch Channel, replyTo, text string) (string, error) {
	last := replyTo
	for i, chunk := range Chunk(text, ch.MaxLen()) {
		id, err := ch.Post(ctx, last, chunk)
		if err != nil {
			return last, fmt.Errorf("post chunk %d to %s: %w", i+1, ch.Name(), err)
		}
		last = id
	}
	return last, nil
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}
