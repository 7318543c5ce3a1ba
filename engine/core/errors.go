package core

import (
	"errors"
	"fmt"
)

var (
	ErrParse              = errors.New("parse error")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrResourceCreation   = errors.New("resource creation failed")
	ErrMemoryTypeNotFound = errors.New("no suitable memory type")
	ErrUnknown            = errors.New("unknown")
)

// ParseError reports a missing or malformed scene document. Loading is
// aborted and no partial model is returned.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse error: %v", e.Err)
	}
	return fmt.Sprintf("parse error in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// UnsupportedFormatError reports an index or attribute layout outside the
// supported set, e.g. a 64-bit index component or a VEC2 position.
type UnsupportedFormatError struct {
	What  string
	Value interface{}
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported %s: %v", e.What, e.Value)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

// ResourceCreationError wraps a failed GPU allocation or creation call.
// Result holds the backend status string when there is one.
type ResourceCreationError struct {
	Resource string
	Result   string
	Err      error
}

func (e *ResourceCreationError) Error() string {
	msg := "failed to create " + e.Resource
	if e.Result != "" {
		msg += " (" + e.Result + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResourceCreationError) Unwrap() error { return e.Err }

func (e *ResourceCreationError) Is(target error) bool { return target == ErrResourceCreation }

// MemoryTypeNotFoundError is raised when no device memory type satisfies the
// requested type filter and property flags.
type MemoryTypeNotFoundError struct {
	TypeFilter uint32
	Properties uint32
}

func (e *MemoryTypeNotFoundError) Error() string {
	return fmt.Sprintf("no memory type matches filter %#x with properties %#x", e.TypeFilter, e.Properties)
}

func (e *MemoryTypeNotFoundError) Is(target error) bool { return target == ErrMemoryTypeNotFound }
