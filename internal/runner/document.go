package runner

import (
	"os"
	"strings"
)

// documentTracker follows the run's draft document. The primary signal is a
// Write tool-use block carrying the full new content; the filesystem
// watcher is a compensating observer for edits that never surface as a
// full-content Write (in-place edit tools only carry a diff). Either way,
// identical content is emitted at most once.
type documentTracker struct {
	path        string
	lastEmitted string
	emitted     bool
}

func newDocumentTracker(path string) *documentTracker {
	return &documentTracker{path: path}
}

// enabled reports whether document tracking is configured for this run.
func (d *documentTracker) enabled() bool {
	return d != nil && d.path != ""
}

// matches reports whether a Write tool target refers to the draft document.
func (d *documentTracker) matches(target string) bool {
	return d.enabled() && target != "" && strings.HasSuffix(target, d.path[strings.LastIndex(d.path, "/")+1:])
}

// record notes content that has been emitted to the client.
func (d *documentTracker) record(content string) {
	d.lastEmitted = content
	d.emitted = true
}

// fromDisk reads the current document, returning ok=false when the file is
// absent, unreadable, or identical to what was already emitted. A missing
// file is normal: many runs never produce a document. A transient partial
// read during a write is tolerated because the next watch event re-reads.
func (d *documentTracker) fromDisk() (string, bool) {
	if !d.enabled() {
		return "", false
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return "", false
	}
	content := string(data)
	if strings.TrimSpace(content) == "" || content == d.lastEmitted {
		return "", false
	}
	return content, true
}

// fallback returns the document content to emit at end of run, if the run
// produced a file but no document_update was ever sent.
func (d *documentTracker) fallback() (string, bool) {
	if !d.enabled() || d.emitted {
		return "", false
	}
	return d.fromDisk()
}
