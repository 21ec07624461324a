package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local keeps PDFs as files under one directory.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Put(_ context.Context, patientID string, data []byte) error {
	path, err := l.path(patientID)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace pdf: %w", err)
	}
	return nil
}

func (l *Local) Get(_ context.Context, patientID string) ([]byte, error) {
	path, err := l.path(patientID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return data, nil
}

// path rejects identifiers that would escape the uploads directory.
func (l *Local) path(patientID string) (string, error) {
	if patientID == "" || strings.ContainsAny(patientID, `/\`) || strings.Contains(patientID, "..") {
		return "", fmt.Errorf("invalid patient identifier %q", patientID)
	}
	return filepath.Join(l.dir, patientID+".pdf"), nil
}
