// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report appends the "References:" block to a scanned document.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pdiddy/docman/internal/citation"
	"github.com/pdiddy/docman/internal/scan"
)

// Header is the line that opens the bibliography.
const Header = "References:"

// ErrUnknownCitation indicates the document cites an id the store lacks.
var ErrUnknownCitation = errors.New("unknown citation")

// Assembler renders the bibliography for a ReferenceSet.
type Assembler struct {
	Store  *citation.Store
	Lookup citation.Lookup
}

// Render returns one line per cited id in ascending id order. It stops at
// the first id that is missing from the store or fails to render.
func (a *Assembler) Render(ctx context.Context, refs scan.ReferenceSet) ([]string, error) {
	ids := refs.Sorted()
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		c, ok := a.Store.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCitation, id)
		}
		line, err := c.Render(ctx, a.Lookup)
		if err != nil {
			return nil, err
		}
		slog.Debug("rendered citation", "id", id, "kind", c.Kind())
		lines = append(lines, line)
	}
	return lines, nil
}

// Write renders the bibliography and writes a blank line, Header and the
// rendered lines to w. Nothing is written unless every citation rendered.
func (a *Assembler) Write(ctx context.Context, w io.Writer, refs scan.ReferenceSet) error {
	lines, err := a.Render(ctx, refs)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("\n" + Header + "\n")
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing references: %w", err)
	}
	return nil
}

// Process scans in, echoing it to out, then appends the bibliography built
// from store. Text echoed before a failure stays in out.
func Process(ctx context.Context, in io.Reader, out io.Writer, store *citation.Store, lookup citation.Lookup) error {
	refs, err := scan.Scan(in, out)
	if err != nil {
		return err
	}
	slog.Debug("scanned document", "citations", refs.Len())

	a := &Assembler{Store: store, Lookup: lookup}
	return a.Write(ctx, out, refs)
}
