package bsonarchive

import (
	"bytes"
	"io"

	"github.com/chaisql/bsonarchive/archive"
	"github.com/chaisql/bsonarchive/walk"
	"github.com/cockroachdb/errors"
)

// ErrTrailingData is returned by Unmarshal when data contains more than one document.
var ErrTrailingData = errors.New("trailing data after the first document")

// ErrMissingDocument is returned by Load when the stream contains fewer
// documents than targets.
var ErrMissingDocument = errors.New("missing document")

// Marshal returns the BSON encoding of v as one root document.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer

	err := Save(&buf, v)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal parses the BSON document in data and stores the result in the
// value pointed to by v. data must contain exactly one document.
func Unmarshal(data []byte, v any) error {
	dec, err := archive.NewDecoder(bytes.NewReader(data), nil)
	if err != nil {
		return err
	}

	switch dec.Len() {
	case 0:
		return errors.WithStack(ErrMissingDocument)
	case 1:
	default:
		return errors.Wrapf(ErrTrailingData, "found %d documents", dec.Len())
	}

	return walk.Load(dec, v)
}

// Save writes every value to w, each one as a root document.
// Documents are written to w as soon as they are complete.
func Save(w io.Writer, values ...any) error {
	enc := archive.NewEncoder(w, nil)

	for i, v := range values {
		err := walk.Save(enc, v)
		if err != nil {
			return errors.Wrapf(err, "cannot save value %d", i)
		}
	}

	return nil
}

// Load reads the root documents of r into targets, in order.
// Each target must be a non-nil pointer. Documents left after the last
// target are ignored.
func Load(r io.Reader, targets ...any) error {
	dec, err := archive.NewDecoder(r, nil)
	if err != nil {
		return err
	}

	for i, v := range targets {
		if !dec.More() {
			return errors.Wrapf(ErrMissingDocument, "stream holds %d documents, expected %d", dec.Len(), len(targets))
		}

		err = walk.Load(dec, v)
		if err != nil {
			return errors.Wrapf(err, "cannot load document %d", i)
		}
	}

	return nil
}
