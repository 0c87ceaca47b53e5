// Package knossos provides read-only access to Knossos block stores: 3-d
// uint8 volumes saved as one image file per cubic block.
package knossos

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/robert-malhotra/go-knossos/internal/grid"
)

// Common errors. Every error returned by this package that falls into one of
// these classes matches it with errors.Is.
var (
	ErrFormat      = errors.New("not a knossos store")
	ErrKeyNotFound = errors.New("dataset not found")
	ErrOutOfRange  = errors.New("region out of range")
	ErrBlockRead   = errors.New("block read failed")
)

// FormatError reports a store whose directory layout is not recognized.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Path, ErrFormat, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// KeyError reports a dataset key with no directory under the store root.
type KeyError struct {
	Key  string
	Path string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s: %v: %q", e.Path, ErrKeyNotFound, e.Key)
}

func (e *KeyError) Is(target error) bool { return target == ErrKeyNotFound }

// RangeError reports a region that does not fit inside the dataset.
type RangeError struct {
	Axis   int
	Range  Range
	Extent int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: axis %d range %s invalid for extent %d", ErrOutOfRange, e.Axis, e.Range, e.Extent)
}

func (e *RangeError) Is(target error) bool { return target == ErrOutOfRange }

// BlockReadError reports a block file that is missing, cannot be decoded,
// or does not have the block shape.
type BlockReadError struct {
	Coord grid.Coord
	Path  string
	Err   error
}

func (e *BlockReadError) Error() string {
	return fmt.Sprintf("reading block %s from %s: %v", e.Coord, e.Path, e.Err)
}

func (e *BlockReadError) Unwrap() error { return e.Err }

func (e *BlockReadError) Is(target error) bool { return target == ErrBlockRead }
