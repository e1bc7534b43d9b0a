package docstore

import (
	"strings"
)

// Path addresses a document or a collection as alternating collection/id segments,
// e.g. "organizations/o1/branches/b1/medicines/m1". A path with an even number of
// segments names a document; an odd number names a collection.
type Path string

// Join builds a path from segments, skipping empty ones
func Join(segments ...string) Path {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return Path(strings.Join(parts, "/"))
}

// String returns the path as a string
func (p Path) String() string { return string(p) }

func (p Path) segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), "/")
}

// IsDocument reports whether the path names a document
func (p Path) IsDocument() bool {
	n := len(p.segments())
	return n > 0 && n%2 == 0
}

// IsCollection reports whether the path names a collection
func (p Path) IsCollection() bool {
	return len(p.segments())%2 == 1
}

// Collection returns the collection a document belongs to, or the path itself for a collection
func (p Path) Collection() Path {
	if !p.IsDocument() {
		return p
	}
	segs := p.segments()
	return Path(strings.Join(segs[:len(segs)-1], "/"))
}

// ID returns the last segment of a document path
func (p Path) ID() string {
	segs := p.segments()
	if len(segs) == 0 || !p.IsDocument() {
		return ""
	}
	return segs[len(segs)-1]
}

// Doc returns the path of a document inside this collection
func (p Path) Doc(id string) Path {
	return Join(string(p), id)
}

// Sub returns the path of a sub-collection under this document
func (p Path) Sub(collection string) Path {
	return Join(string(p), collection)
}

// HasPrefix reports whether p lies under the given path
func (p Path) HasPrefix(prefix Path) bool {
	if prefix == "" {
		return true
	}
	return p == prefix || strings.HasPrefix(string(p), string(prefix)+"/")
}

// OrganizationRoot is the document that owns organization-wide collections
func OrganizationRoot(organizationID string) Path {
	return Join("organizations", organizationID)
}

// BranchRoot is the document that owns a branch's collections
func BranchRoot(organizationID, branchID string) Path {
	return OrganizationRoot(organizationID).Sub("branches").Doc(branchID)
}
