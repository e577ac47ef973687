package mover

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a move failed
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindDirectoryCreate
	KindDestinationExists
	KindSourceMissing
	KindIO
)

// String returns the string representation of the kind
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDirectoryCreate:
		return "directory_create"
	case KindDestinationExists:
		return "destination_exists"
	case KindSourceMissing:
		return "source_missing"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Sentinels matched with errors.Is against an *Error.
var (
	ErrDirectoryCreate   = errors.New("cannot create destination directory")
	ErrDestinationExists = errors.New("destination already exists")
	ErrSourceMissing     = errors.New("source file missing")
	ErrMoveIO            = errors.New("move failed")
)

// Error is a failed move
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := "move error"
	if s := e.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", msg, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", msg, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s := e.sentinel()
	return s != nil && target == s
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindDirectoryCreate:
		return ErrDirectoryCreate
	case KindDestinationExists:
		return ErrDestinationExists
	case KindSourceMissing:
		return ErrSourceMissing
	case KindIO:
		return ErrMoveIO
	default:
		return nil
	}
}

// KindOf extracts the ErrorKind from err, or KindIO for foreign errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return KindIO
}
