package encoding

import (
	"io"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// MaxDocumentSize is the largest document accepted by default, as defined
// by the BSON specification for MongoDB.
const MaxDocumentSize = 16 * 1024 * 1024

// minDocumentSize is the size of an empty document:
// the length prefix and the terminating null byte.
const minDocumentSize = 5

// ErrMalformedFrame is returned when a length prefix cannot describe a valid document.
var ErrMalformedFrame = errors.New("malformed document frame")

// ReadDocument reads exactly one length-prefixed document from r.
// The returned document owns its buffer.
// It returns io.EOF if r is exhausted before the first byte of the prefix.
func ReadDocument(r io.Reader, maxSize int) (bsoncore.Document, error) {
	if maxSize <= 0 {
		maxSize = MaxDocumentSize
	}

	var prefix [4]byte
	_, err := io.ReadFull(r, prefix[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrap(ErrMalformedFrame, "truncated length prefix")
	}

	length, _, ok := bsoncore.ReadLength(prefix[:])
	if !ok {
		return nil, errors.WithStack(ErrMalformedFrame)
	}
	if length < minDocumentSize {
		return nil, errors.Wrapf(ErrMalformedFrame, "document length %d is too small", length)
	}
	if int(length) > maxSize {
		return nil, errors.Wrapf(ErrMalformedFrame, "document length %d exceeds the maximum of %d bytes", length, maxSize)
	}

	buf := make([]byte, length)
	copy(buf, prefix[:])
	_, err = io.ReadFull(r, buf[len(prefix):])
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedFrame, "truncated document: expected %d bytes", length)
	}
	if buf[length-1] != 0 {
		return nil, errors.Wrap(ErrMalformedFrame, "missing document terminator")
	}

	return bsoncore.Document(buf), nil
}

// ReadDocuments reads documents from r until it is exhausted.
// If validate is true, every document is fully validated.
func ReadDocuments(r io.Reader, maxSize int, validate bool) ([]bsoncore.Document, error) {
	var docs []bsoncore.Document

	for {
		doc, err := ReadDocument(r, maxSize)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "document %d", len(docs))
		}

		if validate {
			if err := doc.Validate(); err != nil {
				return nil, errors.Wrapf(err, "invalid document %d", len(docs))
			}
		}

		docs = append(docs, doc)
	}
}
