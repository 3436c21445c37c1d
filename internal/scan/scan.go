// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan echoes a document line by line and collects the citation ids
// referenced in it as [id] markers.
package scan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrUnbalanced indicates a "]" without an opener, or openers left
	// unclosed at the end of the document.
	ErrUnbalanced = errors.New("unbalanced brackets")

	// ErrNoCitations indicates the document contains no [id] markers.
	ErrNoCitations = errors.New("no citations found")
)

// citeRe matches the shortest bracketed run, so "[a][b]" yields a and b.
var citeRe = regexp.MustCompile(`\[(.*?)\]`)

// ReferenceSet is the set of distinct ids cited in a document.
type ReferenceSet map[string]struct{}

// NewReferenceSet returns a set holding ids.
func NewReferenceSet(ids ...string) ReferenceSet {
	s := make(ReferenceSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id.
func (s ReferenceSet) Add(id string) { s[id] = struct{}{} }

// Has reports whether id is in the set.
func (s ReferenceSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of distinct ids.
func (s ReferenceSet) Len() int { return len(s) }

// Sorted returns the ids in ascending byte order.
func (s ReferenceSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Scan reads r line by line, writes every line to w followed by "\n", and
// returns the ids of all [id] markers.
//
// Each line is written before it is checked, so when Scan fails the lines up
// to and including the offending one have already reached w. The bracket
// count runs across the whole document: a "]" that drops it below zero fails
// at once, a count above zero fails once r is exhausted.
func Scan(r io.Reader, w io.Writer) (ReferenceSet, error) {
	br := bufio.NewReader(r)
	refs := make(ReferenceSet)
	depth := 0

	for lineNo := 1; ; lineNo++ {
		line, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("reading input: %w", readErr)
		}
		if line == "" && readErr != nil {
			break
		}
		line = strings.TrimSuffix(line, "\n")

		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return nil, fmt.Errorf("writing output: %w", err)
		}

		for i := 0; i < len(line); i++ {
			switch line[i] {
			case '[':
				depth++
			case ']':
				depth--
				if depth < 0 {
					return nil, fmt.Errorf("%w: line %d: unmatched \"]\" at column %d", ErrUnbalanced, lineNo, i+1)
				}
			}
		}

		for _, m := range citeRe.FindAllStringSubmatch(line, -1) {
			refs.Add(m[1])
		}

		if readErr != nil {
			break
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("%w: %d unclosed \"[\" at end of document", ErrUnbalanced, depth)
	}
	if refs.Len() == 0 {
		return nil, ErrNoCitations
	}
	return refs, nil
}
