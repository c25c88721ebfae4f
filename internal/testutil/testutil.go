// Package testutil provides helpers shared by the tests of the module.
package testutil

import (
	"bytes"
	"testing"

	"github.com/chaisql/bsonarchive/archive"
	"github.com/chaisql/bsonarchive/document"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

// MakeObject creates a document from a json string.
func MakeObject(t testing.TB, jsonDoc string) *document.FieldBuffer {
	t.Helper()

	fb, err := document.NewFromJSON([]byte(jsonDoc))
	require.NoError(t, err)

	return fb
}

// MakeObjects creates a slice of documents from json strings.
func MakeObjects(t testing.TB, jsonDocs ...string) []*document.FieldBuffer {
	t.Helper()

	fbs := make([]*document.FieldBuffer, 0, len(jsonDocs))
	for _, jsonDoc := range jsonDocs {
		fbs = append(fbs, MakeObject(t, jsonDoc))
	}
	return fbs
}

// MakeArray creates an array from a json string.
func MakeArray(t testing.TB, jsonArray string) document.ValueBuffer {
	t.Helper()

	var vb document.ValueBuffer

	err := vb.UnmarshalJSON([]byte(jsonArray))
	require.NoError(t, err)

	return vb
}

// Encode saves every document to an archive and returns the resulting stream.
func Encode(t testing.TB, fbs ...*document.FieldBuffer) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc := archive.NewEncoder(&buf, nil)
	for _, fb := range fbs {
		require.NoError(t, fb.SaveArchive(enc))
	}

	return buf.Bytes()
}

// RoundTrip encodes the documents and reads them back from the resulting stream.
func RoundTrip(t testing.TB, fbs ...*document.FieldBuffer) []*document.FieldBuffer {
	t.Helper()

	got, err := document.ReadBSON(bytes.NewReader(Encode(t, fbs...)), 0)
	require.NoError(t, err)

	return got
}

// RequireObjEqual fails the test if the two documents differ.
func RequireObjEqual(t testing.TB, want, got *document.FieldBuffer) {
	t.Helper()

	if diff := cmp.Diff(want, got, cmp.AllowUnexported(document.FieldBuffer{}), cmpopts.EquateEmpty()); diff != "" {
		require.Failf(t, "documents mismatch", "(-want +got):\n%s", diff)
	}
}

// RequireJSONEq fails the test if the JSON representation of the document
// differs from the expected one.
func RequireJSONEq(t testing.TB, want string, fb *document.FieldBuffer) {
	t.Helper()

	data, err := fb.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, want, string(data))
}
