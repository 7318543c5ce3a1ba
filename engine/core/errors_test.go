package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	inner := errors.New("unexpected EOF")
	var err error = fmt.Errorf("loading sponza: %w", &ParseError{Path: "sponza.gltf", Err: inner})

	assert.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, err, inner)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)

	var pe *ParseError
	if assert.ErrorAs(t, err, &pe) {
		assert.Equal(t, "sponza.gltf", pe.Path)
	}

	err = &UnsupportedFormatError{What: "index component type", Value: "FLOAT"}
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, "unsupported index component type: FLOAT", err.Error())

	err = &ResourceCreationError{Resource: "vertex buffer", Result: "VK_ERROR_OUT_OF_DEVICE_MEMORY"}
	assert.ErrorIs(t, err, ErrResourceCreation)
	assert.Contains(t, err.Error(), "VK_ERROR_OUT_OF_DEVICE_MEMORY")

	err = &MemoryTypeNotFoundError{TypeFilter: 0x3, Properties: 0x6}
	assert.ErrorIs(t, err, ErrMemoryTypeNotFound)
}

func TestSetLogLevel(t *testing.T) {
	assert.NoError(t, SetLogLevel("debug"))
	assert.Error(t, SetLogLevel("chatty"))
	assert.NoError(t, SetLogLevel("info"))
}
