package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/chaisql/bsonarchive/internal/encoding"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

func TestReadDocuments(t *testing.T) {
	a := bsoncore.NewDocumentBuilder().AppendInt32("a", 1).Build()
	b := bsoncore.NewDocumentBuilder().AppendString("b", "two").Build()
	empty := bsoncore.NewDocumentBuilder().Build()

	var buf bytes.Buffer
	buf.Write(a)
	buf.Write(empty)
	buf.Write(b)

	docs, err := encoding.ReadDocuments(&buf, 0, true)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.Equal(t, []byte(a), []byte(docs[0]))
	require.Equal(t, []byte(empty), []byte(docs[1]))
	require.Equal(t, []byte(b), []byte(docs[2]))

	// each document owns an exactly sized buffer
	require.Equal(t, len(docs[1]), cap(docs[1]))
}

func TestReadDocumentsEmptyInput(t *testing.T) {
	docs, err := encoding.ReadDocuments(bytes.NewReader(nil), 0, false)
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestReadDocumentErrors(t *testing.T) {
	valid := bsoncore.NewDocumentBuilder().AppendInt32("a", 1).Build()

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated prefix", []byte{5, 0}},
		{"too small", []byte{4, 0, 0, 0}},
		{"negative", []byte{0xff, 0xff, 0xff, 0xff}},
		{"truncated body", valid[:len(valid)-2]},
		{"missing terminator", append(append([]byte{}, valid[:len(valid)-1]...), 1)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := encoding.ReadDocument(bytes.NewReader(test.data), 0)
			require.ErrorIs(t, err, encoding.ErrMalformedFrame)
		})
	}

	t.Run("exceeds max size", func(t *testing.T) {
		_, err := encoding.ReadDocument(bytes.NewReader(valid), len(valid)-1)
		require.ErrorIs(t, err, encoding.ErrMalformedFrame)
	})

	t.Run("EOF", func(t *testing.T) {
		_, err := encoding.ReadDocument(bytes.NewReader(nil), 0)
		require.Equal(t, io.EOF, err)
	})
}
