package archive

import (
	"github.com/chaisql/bsonarchive/internal/encoding"
	"github.com/cockroachdb/errors"
)

// Errors returned by the encoder and the decoder.
// All of them abort the traversal in progress.
var (
	// ErrKeyNotFound is returned when a named field does not exist in the current object.
	ErrKeyNotFound = encoding.ErrKeyNotFound

	// ErrTypeMismatch is returned when a value is loaded as a type different
	// from the one it was stored with.
	ErrTypeMismatch = encoding.ErrTypeMismatch

	// ErrStructure is returned when the traversal events don't describe a valid tree:
	// entering a container that is a scalar, querying the size of something that
	// is not an array, saving a scalar outside of any container, etc.
	ErrStructure = errors.New("invalid structure")

	// ErrOutOfBounds is returned when reading past the last element of an array
	// or past the last document of the input.
	ErrOutOfBounds = errors.New("out of bounds")
)

// structuref wraps ErrStructure with a message.
func structuref(format string, args ...interface{}) error {
	return errors.Wrapf(ErrStructure, format, args...)
}

// asStructure wraps ErrStructure around a builder error.
func asStructure(err error) error {
	return errors.Wrapf(ErrStructure, "%v", err)
}
