// Package blobstore holds uploaded report PDFs, one object per patient.
package blobstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("pdf not found")

// Store persists and retrieves one PDF per patient identifier.
type Store interface {
	Put(ctx context.Context, patientID string, data []byte) error
	Get(ctx context.Context, patientID string) ([]byte, error)
}
