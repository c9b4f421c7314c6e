package models

import (
	"path"
	"strings"
)

// RepositoryRef names one remote repository plus the credential used to
// read it. It is supplied per request and never persisted.
type RepositoryRef struct {
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	Ref        string `json:"ref,omitempty"` // optional branch to try before the default
	Credential string `json:"-"`
}

// FullName returns the owner/name form used by hosting APIs.
func (r RepositoryRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// String implements fmt.Stringer without exposing the credential.
func (r RepositoryRef) String() string {
	if r.Ref != "" {
		return r.FullName() + "@" + r.Ref
	}
	return r.FullName()
}

// WithCredential returns a copy of the ref carrying the given credential.
func (r RepositoryRef) WithCredential(credential string) RepositoryRef {
	r.Credential = credential
	return r
}

// EntryKind distinguishes files from directories in a tree listing.
type EntryKind string

const (
	EntryBlob EntryKind = "blob"
	EntryTree EntryKind = "tree"
)

// String implements fmt.Stringer.
func (k EntryKind) String() string { return string(k) }

// FileEntry is one entry of a recursive tree listing.
type FileEntry struct {
	Path string    `json:"path"`
	Kind EntryKind `json:"kind"`
	Size int64     `json:"size"`
}

// IsBlob reports whether the entry is a file.
func (e FileEntry) IsBlob() bool {
	return e.Kind == EntryBlob
}

// IsRoot reports whether the entry sits at the top level of the repository.
func (e FileEntry) IsRoot() bool {
	return !strings.Contains(strings.Trim(e.Path, "/"), "/")
}

// Base returns the final path element.
func (e FileEntry) Base() string {
	return path.Base(e.Path)
}
