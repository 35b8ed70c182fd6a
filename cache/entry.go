package cache

import (
	"sync/atomic"

	"github.com/opencontainers/go-digest"
)

// Entry is a cached response. Content, ContentType and ETag never change
// after construction, so entries may be shared between readers.
type Entry struct {
	Content     []byte
	ContentType string
	ETag        string

	accesses atomic.Int64
}

// NewEntry creates an entry, deriving the ETag from content when etag is
// empty.
func NewEntry(content []byte, contentType, etag string) *Entry {
	if etag == "" {
		etag = ETag(content)
	}
	e := &Entry{Content: content, ContentType: contentType, ETag: etag}
	e.accesses.Store(1)
	return e
}

// Accesses returns how many times this entry was served fresh, counting
// the insert.
func (e *Entry) Accesses() int64 {
	return e.accesses.Load()
}

func (e *Entry) touch() {
	e.accesses.Add(1)
}

// ETag returns the quoted SHA-256 hex digest of content, suitable for
// direct comparison with an If-None-Match header.
func ETag(content []byte) string {
	return `"` + digest.FromBytes(content).Encoded() + `"`
}
