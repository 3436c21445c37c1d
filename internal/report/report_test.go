// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docman/internal/citation"
	"github.com/pdiddy/docman/internal/scan"
)

type stubLookup struct {
	records map[string]map[string]any
	calls   int
}

func (s *stubLookup) Fetch(_ context.Context, resource string) (map[string]any, error) {
	s.calls++
	rec, ok := s.records[resource]
	if !ok {
		return nil, errors.New("HTTP 404")
	}
	return rec, nil
}

const database = `{"citations": [
  {"type": "article", "id": "r1", "title": "T", "author": "A", "journal": "J", "year": 2020, "volume": 1, "issue": 2},
  {"type": "book", "id": "b1", "isbn": "42"},
  {"type": "webpage", "id": "w1", "url": "https://example.com/page"},
  {"type": "article", "id": "broken", "title": "T"}
]}`

func loadStore(t *testing.T) *citation.Store {
	t.Helper()
	s, err := citation.Load(strings.NewReader(database), citation.FormatJSON)
	require.NoError(t, err)
	return s
}

func lookup() *stubLookup {
	return &stubLookup{records: map[string]map[string]any{
		"/isbn/42": {"author": "Adams", "title": "Hitchhiker", "publisher": "Pan", "year": "1979"},
		"/title/https%3A%2F%2Fexample.com%2Fpage": {"title": "Example"},
	}}
}

func TestProcessEndToEnd(t *testing.T) {
	s, err := citation.Load(strings.NewReader(
		`{"citations":[{"type":"article","id":"r1","title":"T","author":"A","journal":"J","year":2020,"volume":1,"issue":2}]}`),
		citation.FormatJSON)
	require.NoError(t, err)

	var out bytes.Buffer
	err = Process(context.Background(), strings.NewReader("See [r1] for details.\n"), &out, s, nil)
	require.NoError(t, err)
	assert.Equal(t, "See [r1] for details.\n\nReferences:\n[r1] article: A, T, J, 2020, 1, 2\n", out.String())
}

func TestProcessSortedMixedKinds(t *testing.T) {
	var out bytes.Buffer
	doc := "Web [w1], book [b1], article [r1].\nBook again [b1].\n"
	err := Process(context.Background(), strings.NewReader(doc), &out, loadStore(t), lookup())
	require.NoError(t, err)

	want := doc + "\nReferences:\n" +
		"[b1] book: Adams, Hitchhiker, Pan, 1979\n" +
		"[r1] article: A, T, J, 2020, 1, 2\n" +
		"[w1] webpage: Example. Available at https://example.com/page\n"
	assert.Equal(t, want, out.String())
}

func TestProcessUnknownCitation(t *testing.T) {
	var out bytes.Buffer
	err := Process(context.Background(), strings.NewReader("cite [r1] and [x]\n"), &out, loadStore(t), lookup())
	require.ErrorIs(t, err, ErrUnknownCitation)
	assert.Contains(t, err.Error(), `"x"`)
	assert.Equal(t, "cite [r1] and [x]\n", out.String(), "no partial bibliography")
}

func TestProcessFormatErrorWritesNoReferences(t *testing.T) {
	var out bytes.Buffer
	err := Process(context.Background(), strings.NewReader("[r1] [broken]\n"), &out, loadStore(t), lookup())
	require.ErrorIs(t, err, citation.ErrFormat)
	assert.NotContains(t, out.String(), Header)
}

func TestProcessRemoteFailure(t *testing.T) {
	var out bytes.Buffer
	err := Process(context.Background(), strings.NewReader("[b1]\n"), &out, loadStore(t), &stubLookup{})
	require.ErrorIs(t, err, citation.ErrRemoteLookup)
	assert.Equal(t, "[b1]\n", out.String())
}

func TestProcessScanErrors(t *testing.T) {
	var out bytes.Buffer
	err := Process(context.Background(), strings.NewReader("no markers\n"), &out, loadStore(t), lookup())
	assert.ErrorIs(t, err, scan.ErrNoCitations)

	out.Reset()
	err = Process(context.Background(), strings.NewReader("] [r1]\n"), &out, loadStore(t), lookup())
	assert.ErrorIs(t, err, scan.ErrUnbalanced)
}

func TestAssemblerRenderResolvesEachTime(t *testing.T) {
	l := lookup()
	a := &Assembler{Store: loadStore(t), Lookup: l}
	refs := scan.NewReferenceSet("b1", "w1")

	_, err := a.Render(context.Background(), refs)
	require.NoError(t, err)
	_, err = a.Render(context.Background(), refs)
	require.NoError(t, err)
	assert.Equal(t, 4, l.calls)
}

func TestAssemblerNilStore(t *testing.T) {
	a := &Assembler{}
	_, err := a.Render(context.Background(), scan.NewReferenceSet("r1"))
	assert.ErrorIs(t, err, ErrUnknownCitation)
}
