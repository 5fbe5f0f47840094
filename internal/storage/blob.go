package storage

import "io"

// ArtifactStore holds the read-mostly files the server starts from: the
// edit-buffer template and the question bank source.
type ArtifactStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}

// ReadAll fetches a whole artifact.
func ReadAll(s ArtifactStore, key string) ([]byte, error) {
	rc, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
