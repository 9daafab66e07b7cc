package model

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/minio/highwayhash"
)

// DocumentID identifies a source document. It is the document path relative
// to the workspace root, using forward slashes.
type DocumentID string

// Span is a half-open byte range [Start, End) within a document.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether o lies entirely within s
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// Overlaps reports whether the two spans share at least one byte
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Location is a span within a specific document.
type Location struct {
	Document DocumentID `json:"document"`
	Span     Span       `json:"span"`
}

func (l Location) String() string {
	return string(l.Document) + l.Span.String()
}

// Edit replaces the bytes covered by Span with NewText.
type Edit struct {
	Span    Span
	NewText string
}

// Document is an immutable source file belonging to one unit.
type Document struct {
	ID   DocumentID `json:"id"`
	Unit UnitID     `json:"unit"`
	Path string     `json:"path"` // absolute path on disk
	Text []byte     `json:"-"`

	version string
}

// NewDocument creates a document and computes its content version
func NewDocument(id DocumentID, unit UnitID, path string, text []byte) *Document {
	return &Document{
		ID:      id,
		Unit:    unit,
		Path:    path,
		Text:    text,
		version: contentVersion(text),
	}
}

// Version returns a content hash of the document text. Two documents with
// the same ID and version have identical text.
func (d *Document) Version() string {
	if d.version == "" {
		return contentVersion(d.Text)
	}
	return d.version
}

// WithText returns a copy of the document with new text
func (d *Document) WithText(text []byte) *Document {
	return NewDocument(d.ID, d.Unit, d.Path, text)
}

// Rewrite applies non-overlapping edits and returns the rewritten document.
// The receiver is left untouched.
func (d *Document) Rewrite(edits []Edit) (*Document, error) {
	if len(edits) == 0 {
		return d, nil
	}

	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, func(a, b Edit) int {
		return b.Span.Start - a.Span.Start
	})

	text := slices.Clone(d.Text)
	for i, e := range sorted {
		if e.Span.Start < 0 || e.Span.End > len(d.Text) || e.Span.Start > e.Span.End {
			return nil, fmt.Errorf("edit %s out of range for %s (%d bytes)", e.Span, d.ID, len(d.Text))
		}
		if i > 0 && e.Span.End > sorted[i-1].Span.Start {
			return nil, fmt.Errorf("overlapping edits at %s in %s", e.Span, d.ID)
		}
		text = slices.Concat(text[:e.Span.Start], []byte(e.NewText), text[e.Span.End:])
	}

	return d.WithText(text), nil
}

// Position converts a byte offset into a 1-based line and column
func (d *Document) Position(offset int) (line, col int) {
	line, col = 1, 1
	for i, b := range d.Text {
		if i >= offset {
			break
		}
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

var versionKey = []byte("encap-analyzer:document-version!")

func contentVersion(text []byte) string {
	h, err := highwayhash.New64(versionKey)
	if err != nil {
		// Only fails for a key that is not 32 bytes long.
		panic(err)
	}
	h.Write(text)
	return strconv.FormatUint(h.Sum64(), 16)
}

// DocumentSet is a set of document IDs, used as a search scope.
type DocumentSet map[DocumentID]struct{}

// NewDocumentSet creates a set holding the given IDs
func NewDocumentSet(ids ...DocumentID) DocumentSet {
	s := make(DocumentSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s DocumentSet) Add(id DocumentID) {
	s[id] = struct{}{}
}

func (s DocumentSet) Contains(id DocumentID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the IDs in lexical order
func (s DocumentSet) Sorted() []DocumentID {
	ids := make([]DocumentID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
