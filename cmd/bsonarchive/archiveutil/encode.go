package archiveutil

import (
	"bufio"
	"bytes"
	"io"

	"github.com/chaisql/bsonarchive/archive"
	"github.com/chaisql/bsonarchive/document"
	"github.com/cockroachdb/errors"
)

// EncodeOptions configure EncodeJSON.
type EncodeOptions struct {
	// Lines reads the input as newline delimited JSON objects.
	Lines bool
}

// EncodeJSON reads JSON objects from r and writes each one of them to w
// as a root document. Without the Lines option, the input must contain
// either one object or an array of objects.
// It returns the number of written documents.
func EncodeJSON(r io.Reader, w io.Writer, opts EncodeOptions) (int, error) {
	var fbs []*document.FieldBuffer
	var err error

	if opts.Lines {
		fbs, err = readLines(r)
	} else {
		var data []byte
		data, err = io.ReadAll(r)
		if err != nil {
			return 0, err
		}
		fbs, err = document.NewManyFromJSON(data)
	}
	if err != nil {
		return 0, err
	}

	enc := archive.NewEncoder(w, nil)
	for i, fb := range fbs {
		err = fb.SaveArchive(enc)
		if err != nil {
			return i, errors.Wrapf(err, "cannot encode object %d", i)
		}
	}

	return len(fbs), nil
}

func readLines(r io.Reader) ([]*document.FieldBuffer, error) {
	var fbs []*document.FieldBuffer

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var line int
	for s.Scan() {
		line++

		data := bytes.TrimSpace(s.Bytes())
		if len(data) == 0 {
			continue
		}

		fb, err := document.NewFromJSON(data)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		fbs = append(fbs, fb)
	}

	return fbs, s.Err()
}
