package storage

import (
	"net/url"
	"path/filepath"

	"boscoin.io/pollwatch/lib/errors"
)

const (
	SchemeFile   = "file"
	SchemeMemory = "memory"
)

// Config tells `LevelDBBackend` where the database lives.
type Config struct {
	Scheme string
	Path   string
}

// NewConfigFromString parses "file:///path/to/db" or "memory://".
func NewConfigFromString(s string) (*Config, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, errors.StorageInvalidURI.Clone().SetData("uri", s).SetData("error", err.Error())
	}

	switch u.Scheme {
	case SchemeMemory:
		return &Config{Scheme: SchemeMemory}, nil
	case SchemeFile:
		path := u.Path
		if len(path) < 1 {
			path = u.Opaque
		}
		if len(path) < 1 {
			return nil, errors.StorageInvalidURI.Clone().SetData("uri", s).SetData("error", "empty path")
		}
		return &Config{Scheme: SchemeFile, Path: filepath.Clean(path)}, nil
	default:
		return nil, errors.StorageInvalidURI.Clone().SetData("uri", s).SetData("error", "unknown scheme")
	}
}

func (c *Config) String() string {
	if c.Scheme == SchemeMemory {
		return "memory://"
	}
	return "file://" + c.Path
}
