package archive

import (
	"strconv"

	"github.com/chaisql/bsonarchive/internal/encoding"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// scope is one level of the decoder stack.
// Object scopes hold the document being read and the counter used to
// look up unnamed elements, array scopes hold the elements of the array
// and the position of the next one.
type scope struct {
	state NodeState

	doc   bsoncore.Document
	names uint32

	values []bsoncore.Value
	pos    int
}

// resolve returns the element of s addressed by name, or by position if
// hasName is false, and s advanced past that element.
// s itself is never modified, so a failed resolution leaves the decoder
// stack untouched.
func resolve(s scope, prefix, name string, hasName bool) (bsoncore.Value, scope, error) {
	switch s.state {
	case StateInObject, StateInEmbeddedObject:
		if !hasName {
			name = prefix + strconv.FormatUint(uint64(s.names), 10)
			s.names++
		}

		v, err := encoding.Lookup(s.doc, name)
		if err != nil {
			return bsoncore.Value{}, s, err
		}
		return v, s, nil

	case StateInEmbeddedArray:
		// array elements have no name, the encoder drops them
		if s.pos >= len(s.values) {
			return bsoncore.Value{}, s, errors.Wrapf(ErrOutOfBounds, "element %d of an array of %d elements", s.pos, len(s.values))
		}

		v := s.values[s.pos]
		s.pos++
		return v, s, nil
	}

	return bsoncore.Value{}, s, structuref("no container to read from")
}
