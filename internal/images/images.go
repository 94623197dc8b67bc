// Package images manages the ordered image set of a listing form: remote
// URLs already stored by the backend mixed with newly chosen local files.
package images

import (
	"errors"
	"fmt"
)

const DefaultMax = 10

// LocalFile is a file chosen by the user that has not been uploaded yet.
type LocalFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type Kind int

const (
	Remote Kind = iota
	Pending
)

// Entry is either Remote (URL owned by the server) or Pending (a local
// file whose preview resource is owned by the editor).
type Entry struct {
	Kind    Kind
	URL     string
	File    *LocalFile
	Preview string
}

// Src is what a preview grid shows for the entry.
func (e Entry) Src() string {
	if e.Kind == Remote {
		return e.URL
	}
	return e.Preview
}

func (e Entry) IsPending() bool { return e.Kind == Pending }

// CapacityWarning is shown to the user when a batch does not fit. It is a
// notice, not a failure of the editor.
type CapacityWarning struct {
	Max       int
	Remaining int
}

func (w CapacityWarning) String() string {
	return fmt.Sprintf("You can only upload up to %d images. %d slots remaining.", w.Max, w.Remaining)
}

var ErrIndex = errors.New("image index out of range")

// Previewer acquires a displayable preview for a local file and releases it.
type Previewer interface {
	Acquire(f LocalFile) (string, error)
	Release(preview string) error
}

type Editor struct {
	max      int
	entries  []Entry
	previews Previewer
}

// New seeds the editor with remote URLs in their stored order.
func New(max int, previews Previewer, remote []string) *Editor {
	if max <= 0 {
		max = DefaultMax
	}
	e := &Editor{max: max, previews: previews}
	for _, u := range remote {
		e.entries = append(e.entries, Entry{Kind: Remote, URL: u})
	}
	return e
}

func (e *Editor) Len() int       { return len(e.entries) }
func (e *Editor) Max() int       { return e.max }
func (e *Editor) Remaining() int { return e.max - len(e.entries) }
func (e *Editor) Full() bool     { return len(e.entries) >= e.max }

// Entries returns a copy in display order.
func (e *Editor) Entries() []Entry {
	return append([]Entry(nil), e.entries...)
}

// AddFiles appends the whole batch in selection order, or nothing at all
// when it exceeds the remaining capacity. Picker and drag-and-drop both
// come through here.
func (e *Editor) AddFiles(files []LocalFile) (*CapacityWarning, error) {
	remaining := e.Remaining()
	if len(files) > remaining {
		return &CapacityWarning{Max: e.max, Remaining: remaining}, nil
	}
	added := make([]Entry, 0, len(files))
	for i := range files {
		f := files[i]
		preview, err := e.previews.Acquire(f)
		if err != nil {
			for _, a := range added {
				_ = e.previews.Release(a.Preview)
			}
			return nil, fmt.Errorf("preview %q: %w", f.Name, err)
		}
		added = append(added, Entry{Kind: Pending, File: &f, Preview: preview})
	}
	e.entries = append(e.entries, added...)
	return nil, nil
}

// RemoveAt drops the entry at i and releases its preview right away.
// Later entries shift down by one.
func (e *Editor) RemoveAt(i int) error {
	if i < 0 || i >= len(e.entries) {
		return ErrIndex
	}
	gone := e.entries[i]
	e.entries = append(e.entries[:i:i], e.entries[i+1:]...)
	if gone.IsPending() {
		return e.previews.Release(gone.Preview)
	}
	return nil
}

// Clear removes every entry and releases all local previews.
func (e *Editor) Clear() error {
	var errs []error
	for _, en := range e.entries {
		if en.IsPending() {
			if err := e.previews.Release(en.Preview); err != nil {
				errs = append(errs, err)
			}
		}
	}
	e.entries = nil
	return errors.Join(errs...)
}

// Close is the teardown used when the form session ends.
func (e *Editor) Close() error { return e.Clear() }

// Snapshot splits the set for submission: the ordered reference list, in
// which pending files appear as "file:<n>", and the pending files in that
// same order.
func (e *Editor) Snapshot() (refs []string, files []LocalFile) {
	refs = make([]string, 0, len(e.entries))
	for _, en := range e.entries {
		if en.IsPending() {
			refs = append(refs, FileRef(len(files)))
			files = append(files, *en.File)
			continue
		}
		refs = append(refs, en.URL)
	}
	return refs, files
}

const fileRefPrefix = "file:"

func FileRef(n int) string { return fmt.Sprintf("%s%d", fileRefPrefix, n) }

// ParseFileRef reports the file index of a "file:<n>" reference.
func ParseFileRef(ref string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(ref, fileRefPrefix+"%d", &n); err != nil || FileRef(n) != ref {
		return 0, false
	}
	return n, true
}
