package document_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/chaisql/bsonarchive/document"
	"github.com/chaisql/bsonarchive/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

func TestSaveArchive(t *testing.T) {
	now := time.Date(2021, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	oid := primitive.NewObjectIDFromTimestamp(now)

	fb := document.NewFieldBuffer().
		Add("null", document.NewNullValue()).
		Add("bool", document.NewBoolValue(true)).
		Add("i32", document.NewInt32Value(1)).
		Add("i64", document.NewInt64Value(2)).
		Add("double", document.NewDoubleValue(3.5)).
		Add("string", document.NewStringValue("s")).
		Add("date", document.NewDateTimeValue(now)).
		Add("bin", document.NewBinaryValue(0, []byte{1})).
		Add("oid", document.NewObjectIDValue(oid)).
		Add("re", document.NewRegexValue("a", "")).
		Add("ts", document.NewTimestampValue(3, 4)).
		Add("doc", document.NewDocumentValue(document.NewFieldBuffer().Add("a", document.NewInt64Value(1)))).
		Add("arr", document.NewArrayValue(document.NewValueBuffer(
			document.NewInt64Value(1),
			document.NewArrayValue(nil),
			document.NewDocumentValue(document.NewFieldBuffer()),
		)))

	want := bsoncore.NewDocumentBuilder().
		AppendNull("null").
		AppendBoolean("bool", true).
		AppendInt32("i32", 1).
		AppendInt64("i64", 2).
		AppendDouble("double", 3.5).
		AppendString("string", "s").
		AppendDateTime("date", now.UnixMilli()).
		AppendBinary("bin", 0, []byte{1}).
		AppendObjectID("oid", oid).
		AppendRegex("re", "a", "").
		AppendTimestamp("ts", 3, 4).
		AppendDocument("doc", bsoncore.NewDocumentBuilder().AppendInt64("a", 1).Build()).
		AppendArray("arr", bsoncore.NewArrayBuilder().
			AppendInt64(1).
			AppendArray(bsoncore.NewArrayBuilder().Build()).
			AppendDocument(bsoncore.NewDocumentBuilder().Build()).
			Build()).
		Build()

	got := testutil.Encode(t, fb)
	require.Equal(t, []byte(want), got)

	back, err := document.FromBSON(got)
	require.NoError(t, err)
	testutil.RequireObjEqual(t, fb, back)
}

func TestFromBSONUnsupported(t *testing.T) {
	doc := bsoncore.NewDocumentBuilder().
		AppendJavaScript("js", "function() {}").
		Build()

	_, err := document.FromBSON(doc)
	require.Error(t, err)
}

func TestReadBSON(t *testing.T) {
	fbs := testutil.MakeObjects(t,
		`{"a": 1, "b": {"$date": "2021-01-02T03:04:05.006Z"}}`,
		`{"c": [1.5, "x", {"d": null}]}`,
		`{}`,
	)

	got := testutil.RoundTrip(t, fbs...)
	require.Len(t, got, 3)
	for i := range fbs {
		testutil.RequireObjEqual(t, fbs[i], got[i])
	}
	testutil.RequireJSONEq(t, `{"c": [1.5, "x", {"d": null}]}`, got[1])

	data := testutil.Encode(t, fbs...)
	_, err := document.ReadBSON(bytes.NewReader(data[:len(data)-1]), 0)
	require.Error(t, err)
}

func TestFieldBuffer(t *testing.T) {
	fb := document.NewFieldBuffer().
		Add("a", document.NewInt64Value(1)).
		Add("b", document.NewStringValue("x"))

	require.Equal(t, 2, fb.Len())

	fb.Set("a", document.NewBoolValue(true))
	fb.Set("c", document.NewNullValue())
	require.Equal(t, 3, fb.Len())

	v, err := fb.Get("a")
	require.NoError(t, err)
	require.Equal(t, document.NewBoolValue(true), v)

	_, err = fb.Get("d")
	require.ErrorIs(t, err, document.ErrFieldNotFound)

	var fields []string
	err = fb.Iterate(func(field string, v document.Value) error {
		fields = append(fields, field)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, fields)

	fb.Reset()
	require.Zero(t, fb.Len())
}
