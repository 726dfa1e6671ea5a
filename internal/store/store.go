// Package store persists small JSON values (camera settings, odometers,
// entity snapshots) under string keys.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("key not found")

// Well-known keys.
const (
	KeyOdometer = "entity.odometer"
	KeySnapshot = "entity.snapshot"
)

// Store is the interface all key-value backends must satisfy.
type Store interface {
	// Get decodes the value stored under key into dst.
	Get(key string, dst any) error
	// Put encodes v as JSON and stores it under key.
	Put(key string, v any) error
	Delete(key string) error
	Close() error
}

// GetFloat reads a float stored under key, returning fallback when the key
// is missing or unreadable.
func GetFloat(s Store, key string, fallback float64) float64 {
	var v float64
	if err := s.Get(key, &v); err != nil {
		return fallback
	}
	return v
}

func encode(key string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", key, err)
	}
	return data, nil
}

func decode(key string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}
