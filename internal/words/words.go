// internal/words/words.go

// Package words holds immutable word lists used to generate boards.
package words

import (
	"bufio"
	"strings"
)

// List is an immutable, ordered collection of words. The zero value is an
// empty list.
type List struct {
	words []string
}

// NewList builds a List from the given words, trimming whitespace and
// uppercasing each entry. Empty entries are dropped.
func NewList(words []string) List {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		cleaned = append(cleaned, w)
	}
	return List{words: cleaned}
}

// NewListFromLines builds a List from newline-separated text, normalizing each
// line the same way NewList does.
func NewListFromLines(s string) List {
	words := make([]string, 0, strings.Count(s, "\n")+1)
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	return NewList(words)
}

// Len returns the number of words in the list.
func (l List) Len() int {
	return len(l.words)
}

// Get returns the i'th word. Panics if i is out of bounds.
func (l List) Get(i int) string {
	return l.words[i]
}

// Concat returns a new List containing the receiver's words followed by the
// other list's words. Neither input is modified.
func (l List) Concat(other List) List {
	words := make([]string, 0, len(l.words)+len(other.words))
	words = append(words, l.words...)
	words = append(words, other.words...)
	return List{words: words}
}
