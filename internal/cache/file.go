package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File is a JSON document on disk holding one value of T.
type File[T any] struct {
	Path string
}

func New[T any](path string) *File[T] {
	return &File[T]{Path: path}
}

// Load returns found=false when the file does not exist.
func (c *File[T]) Load() (T, bool, error) {
	var v T
	b, err := os.ReadFile(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("read cache %s: %w", c.Path, err)
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, false, fmt.Errorf("decode cache %s: %w", c.Path, err)
	}
	return v, true, nil
}

// Save writes v through a temp file and rename.
func (c *File[T]) Save(v T) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.Path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), c.Path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache %s: %w", c.Path, err)
	}
	return nil
}
