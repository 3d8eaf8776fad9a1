package core

import "io"

// FileStorage is any service that can persist uploaded files.
type FileStorage interface {
	// Save stores the content under a name derived from `name` and returns the
	// path the file can later be addressed by.
	Save(name string, r io.Reader) (string, error)
	Delete(path string) error
}
