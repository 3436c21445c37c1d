// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

var (
	// ErrLoad indicates the citation database is unreadable or malformed.
	ErrLoad = errors.New("citation database error")

	// ErrDuplicateID indicates two records share an id. Errors wrapping it
	// also match ErrLoad.
	ErrDuplicateID = errors.New("duplicate citation id")
)

// Format selects the citation database encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatForPath returns FormatYAML for .yaml and .yml files and FormatJSON
// for everything else.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Store maps citation ids to citations. It is read-only once built.
type Store struct {
	byID map[string]*Citation
}

// NewStore builds a Store from citations, rejecting repeated ids.
func NewStore(citations ...*Citation) (*Store, error) {
	s := &Store{byID: make(map[string]*Citation, len(citations))}
	for _, c := range citations {
		if _, dup := s.byID[c.ID()]; dup {
			return nil, fmt.Errorf("%w: %w: %q", ErrLoad, ErrDuplicateID, c.ID())
		}
		s.byID[c.ID()] = c
	}
	return s, nil
}

// Get returns the citation for id.
func (s *Store) Get(id string) (*Citation, bool) {
	if s == nil {
		return nil, false
	}
	c, ok := s.byID[id]
	return c, ok
}

// Len returns the number of citations.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byID)
}

// IDs returns every citation id in ascending order.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadFile reads the citation database at path, choosing the decoder with
// FormatForPath.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer f.Close()

	s, err := Load(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Load decodes a citation database of the form
//
//	{"citations": [{"type": "book", "id": "k", "isbn": "..."}, ...]}
//
// validates it against the embedded schema and builds a Store. The load is
// all or nothing: any malformed record fails the whole database.
func Load(r io.Reader, format Format) (*Store, error) {
	doc, err := decode(r, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	if err := validateSchema(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: document is not an object", ErrLoad)
	}
	items, ok := root["citations"].([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%w: \"citations\" must be a non-empty array", ErrLoad)
	}

	citations := make([]*Citation, 0, len(items))
	for i, item := range items {
		c, err := fromRecord(item)
		if err != nil {
			return nil, fmt.Errorf("%w: citations[%d]: %w", ErrLoad, i, err)
		}
		citations = append(citations, c)
	}
	return NewStore(citations...)
}

func decode(r io.Reader, format Format) (any, error) {
	var doc any
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("empty document")
			}
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	default:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading document: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("empty document")
			}
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, errors.New("parsing JSON: trailing data after document")
		}
	}
	return doc, nil
}

// fromRecord builds one Citation from a database record. The schema has
// already checked the shape; the assertions here guard the conversion.
func fromRecord(item any) (*Citation, error) {
	rec, ok := item.(map[string]any)
	if !ok {
		return nil, errors.New("record is not an object")
	}
	typ, ok := rec["type"].(string)
	if !ok {
		return nil, errors.New(`"type" must be a string`)
	}
	id, ok := rec["id"].(string)
	if !ok {
		return nil, errors.New(`"id" must be a string`)
	}
	kind, ok := ParseKind(typ)
	if !ok {
		return nil, fmt.Errorf("%q: unknown type %q", id, typ)
	}

	switch kind {
	case KindBook:
		isbn, ok := rec["isbn"].(string)
		if !ok {
			return nil, fmt.Errorf("book %q: \"isbn\" must be a string", id)
		}
		return NewBook(id, isbn, rec)
	case KindWebPage:
		pageURL, ok := rec["url"].(string)
		if !ok {
			return nil, fmt.Errorf("webpage %q: \"url\" must be a string", id)
		}
		return NewWebPage(id, pageURL, rec)
	case KindArticle:
		return NewArticle(id, rec)
	}
	return NewGeneric(id, rec)
}
