// Package assetstore stores avatar models by name. A Store is backed by a directory, a SQLite database or a
// remote Server reached through a Client.
package assetstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ModelExt is the extension of the names List reports.
const ModelExt = ".vrm"

var (
	// ErrNotFound is returned by Read when no model has the requested name.
	ErrNotFound = errors.New("model not found")

	// ErrInvalidName is returned for names that reduce to nothing once the directory part is dropped.
	ErrInvalidName = errors.New("invalid model name")
)

// Store lists, reads and writes model files by name. Implementations are safe for concurrent use.
type Store interface {
	// List returns the names of the stored models ending in .vrm, sorted.
	//
	// Parameters:
	//   - ctx: the request context
	//
	// Returns:
	//   - []string: the model names
	//   - error: error if the backing storage cannot be listed
	List(ctx context.Context) ([]string, error)

	// Read returns the bytes stored under name.
	//
	// Parameters:
	//   - ctx: the request context
	//   - name: the model name; only its base name is used
	//
	// Returns:
	//   - []byte: the model bytes
	//   - error: ErrNotFound when absent, ErrInvalidName for an unusable name
	Read(ctx context.Context, name string) ([]byte, error)

	// Write stores data under name, replacing any previous model of that name.
	//
	// Parameters:
	//   - ctx: the request context
	//   - name: the model name; only its base name is used
	//   - data: the model bytes
	//
	// Returns:
	//   - error: ErrInvalidName for an unusable name, or the storage error
	Write(ctx context.Context, name string, data []byte) error
}

// CleanName reduces a requested name to its base name so a request can never address another directory.
//
// Parameters:
//   - name: the requested name
//
// Returns:
//   - string: the base name
//   - error: ErrInvalidName when nothing usable remains
func CleanName(name string) (string, error) {
	base := path.Base(filepath.ToSlash(strings.TrimSpace(name)))
	switch base {
	case "", ".", "..", "/", "\\":
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}

// IsModelName reports whether a stored name is listed by List.
func IsModelName(name string) bool {
	return strings.HasSuffix(name, ModelExt)
}

// modelNames keeps the listed names and sorts them.
func modelNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if IsModelName(n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Store kinds accepted by Open.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindHTTP   = "http"
)

// Options selects and configures the store Open returns.
type Options struct {
	// Kind is one of KindFile, KindSQLite or KindHTTP.
	Kind string

	// Dir is the model directory of a file store.
	Dir string

	// Path is the database file of a SQLite store.
	Path string

	// Addr is the server address a client store talks to.
	Addr string
}

// Open creates the store described by opts.
//
// Parameters:
//   - opts: the store selection
//
// Returns:
//   - Store: the store
//   - func() error: releases the store; never nil
//   - error: error if the kind is unknown or the store cannot be opened
func Open(opts Options) (Store, func() error, error) {
	noop := func() error { return nil }
	switch opts.Kind {
	case KindFile, "":
		s, err := NewFileStore(opts.Dir)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case KindSQLite:
		s, err := OpenSQLiteStore(opts.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case KindHTTP:
		return NewClient(opts.Addr), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown store kind %q", opts.Kind)
	}
}
