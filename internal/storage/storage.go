// Package storage persists generated documents, receipt PDFs today, behind a
// driver-neutral interface with local-disk and S3 drivers.
package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// Document is one generated file to store. Name becomes the object key, so
// callers pass a deterministic name ("receipt_<bookingID>.pdf") and a repeat
// store overwrites its predecessor instead of leaking objects.
type Document struct {
	Name        string
	ContentType string
	Body        io.Reader
}

type Stored struct {
	Key string
	URL string
}

type Store interface {
	Put(ctx context.Context, doc Document) (Stored, error)
	Delete(ctx context.Context, key string) error
}

const defaultContentType = "application/pdf"

func contentTypeOr(ct string) string {
	if ct == "" {
		return defaultContentType
	}
	return ct
}

// objectName strips path components and anything outside a conservative
// charset so a booking id in the name can never traverse directories.
func objectName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		out = "document.pdf"
	}
	return out
}
