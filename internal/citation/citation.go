// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation holds the citation model and the loader that builds a
// Store from a citation database.
//
// A Citation is one of four kinds: generic, article, book or webpage. Each
// kind renders to a single bibliography line. Books and webpages fetch the
// fields they render from a remote lookup service through the Lookup
// interface on every render.
package citation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

var (
	// ErrInvalid is returned by the constructors when a required field is empty.
	ErrInvalid = errors.New("invalid citation")

	// ErrFormat indicates a field needed for rendering is missing or has the wrong type.
	ErrFormat = errors.New("citation format error")

	// ErrRemoteLookup indicates the lookup service failed or returned no record.
	ErrRemoteLookup = errors.New("remote lookup failed")
)

// Kind identifies the citation variant.
type Kind int

const (
	KindGeneric Kind = iota
	KindArticle
	KindBook
	KindWebPage
)

// String returns the database spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindArticle:
		return "article"
	case KindBook:
		return "book"
	case KindWebPage:
		return "webpage"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a database "type" value to a Kind. Generic citations cannot
// be declared in a database, so "generic" is not accepted.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "article":
		return KindArticle, true
	case "book":
		return KindBook, true
	case "webpage":
		return KindWebPage, true
	}
	return KindGeneric, false
}

// Lookup fetches a record from the remote lookup service. resource is an
// already-encoded path such as "/isbn/978-0131103627".
type Lookup interface {
	Fetch(ctx context.Context, resource string) (map[string]any, error)
}

// Citation is an immutable bibliographic entry. Build one with NewGeneric,
// NewArticle, NewBook or NewWebPage.
type Citation struct {
	kind Kind
	id   string
	data map[string]any
	isbn string
	url  string
}

// NewGeneric returns a citation that renders as its bare "[id] " prefix.
// data may be nil.
func NewGeneric(id string, data map[string]any) (*Citation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalid)
	}
	return &Citation{kind: KindGeneric, id: id, data: data}, nil
}

// NewArticle returns an article citation. The fields it renders are read
// from data at render time.
func NewArticle(id string, data map[string]any) (*Citation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalid)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: article %q has no data", ErrInvalid, id)
	}
	return &Citation{kind: KindArticle, id: id, data: data}, nil
}

// NewBook returns a book citation resolved by ISBN.
func NewBook(id, isbn string, data map[string]any) (*Citation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalid)
	}
	if isbn == "" {
		return nil, fmt.Errorf("%w: book %q has no isbn", ErrInvalid, id)
	}
	return &Citation{kind: KindBook, id: id, data: data, isbn: isbn}, nil
}

// NewWebPage returns a webpage citation resolved by URL.
func NewWebPage(id, pageURL string, data map[string]any) (*Citation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalid)
	}
	if pageURL == "" {
		return nil, fmt.Errorf("%w: webpage %q has no url", ErrInvalid, id)
	}
	return &Citation{kind: KindWebPage, id: id, data: data, url: pageURL}, nil
}

// ID returns the citation key.
func (c *Citation) ID() string { return c.id }

// Kind returns the citation variant.
func (c *Citation) Kind() Kind { return c.kind }

// ISBN returns the book ISBN, or "" for other kinds.
func (c *Citation) ISBN() string { return c.isbn }

// URL returns the webpage URL, or "" for other kinds.
func (c *Citation) URL() string { return c.url }

// Resource returns the lookup path for books and webpages and "" for kinds
// that need no remote data. The key is percent-encoded with
// EncodeComponent.
func (c *Citation) Resource() string {
	switch c.kind {
	case KindBook:
		return "/isbn/" + EncodeComponent(c.isbn)
	case KindWebPage:
		return "/title/" + EncodeComponent(c.url)
	}
	return ""
}

// Resolve returns the record this citation renders from. Books and webpages
// issue one lookup per call; articles and generic citations return their
// own data without touching l.
func (c *Citation) Resolve(ctx context.Context, l Lookup) (map[string]any, error) {
	switch c.kind {
	case KindGeneric, KindArticle:
		return c.data, nil
	case KindBook, KindWebPage:
		if l == nil {
			return nil, fmt.Errorf("%w: %s %q: no lookup service", ErrRemoteLookup, c.kind, c.id)
		}
		rec, err := l.Fetch(ctx, c.Resource())
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %w", ErrRemoteLookup, c.kind, c.id, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("%w: %s %q: empty record", ErrRemoteLookup, c.kind, c.id)
		}
		return rec, nil
	}
	return nil, fmt.Errorf("%w: %q has unknown kind %s", ErrFormat, c.id, c.kind)
}

// Render returns the bibliography line for c without a trailing newline.
func (c *Citation) Render(ctx context.Context, l Lookup) (string, error) {
	prefix := "[" + c.id + "] "

	if c.kind == KindGeneric {
		return prefix, nil
	}

	rec, err := c.Resolve(ctx, l)
	if err != nil {
		return "", err
	}
	f := fields{id: c.id, rec: rec}

	switch c.kind {
	case KindArticle:
		if rec == nil {
			return "", fmt.Errorf("%w: article %q has no data", ErrFormat, c.id)
		}
		author, title, journal := f.str("author"), f.str("title"), f.str("journal")
		year, volume, issue := f.num("year"), f.num("volume"), f.num("issue")
		if f.err != nil {
			return "", f.err
		}
		return prefix + "article: " + strings.Join([]string{author, title, journal, year, volume, issue}, ", "), nil

	case KindBook:
		author, title, publisher, year := f.str("author"), f.str("title"), f.str("publisher"), f.str("year")
		if f.err != nil {
			return "", f.err
		}
		return prefix + "book: " + strings.Join([]string{author, title, publisher, year}, ", "), nil

	case KindWebPage:
		title := f.str("title")
		if f.err != nil {
			return "", f.err
		}
		return prefix + "webpage: " + title + ". Available at " + c.url, nil
	}
	return "", fmt.Errorf("%w: %q has unknown kind %s", ErrFormat, c.id, c.kind)
}

// fields reads typed values out of a record, keeping the first failure.
type fields struct {
	id  string
	rec map[string]any
	err error
}

func (f *fields) str(key string) string {
	if f.err != nil {
		return ""
	}
	v, ok := f.rec[key]
	if !ok {
		f.err = fmt.Errorf("%w: %q is missing %q", ErrFormat, f.id, key)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		f.err = fmt.Errorf("%w: %q field %q is %T, want string", ErrFormat, f.id, key, v)
		return ""
	}
	return s
}

// num returns a numeric field as a base-10 integer. Fractional values are
// truncated toward zero.
func (f *fields) num(key string) string {
	if f.err != nil {
		return ""
	}
	v, ok := f.rec[key]
	if !ok {
		f.err = fmt.Errorf("%w: %q is missing %q", ErrFormat, f.id, key)
		return ""
	}
	n, ok := toInt(v)
	if !ok {
		f.err = fmt.Errorf("%w: %q field %q is %T, want number", ErrFormat, f.id, key, v)
		return ""
	}
	return strconv.FormatInt(n, 10)
}

// toInt accepts the numeric types produced by encoding/json (json.Number,
// float64) and by the YAML decoder (int, int64, uint64, float64).
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		fl, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return truncate(fl)
	case float64:
		return truncate(n)
	case float32:
		return truncate(float64(n))
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func truncate(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// EncodeComponent percent-encodes s for use as a single path segment. Every
// byte outside A-Z, a-z, 0-9 and "-_.~" is escaped, including "/", ":" and
// space (as %20).
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
