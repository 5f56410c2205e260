// Package chunker splits document text into fixed-width, non-overlapping windows.
package chunker

// DefaultMaxSize is the chunk width, in characters, used by every persisted index.
const DefaultMaxSize = 5000

// Split slices text into consecutive windows of at most maxSize characters (runes).
// The last window may be shorter. Joining the result yields text unchanged.
// Split("") returns nil. A non-positive maxSize falls back to DefaultMaxSize.
func Split(text string, maxSize int) []string {
	if text == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	chunks := make([]string, 0, len(text)/maxSize+1)
	start, n := 0, 0
	for i := range text {
		if n == maxSize {
			chunks = append(chunks, text[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(chunks, text[start:])
}
