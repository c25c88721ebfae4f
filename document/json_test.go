package document_test

import (
	"math"
	"testing"
	"time"

	"github.com/chaisql/bsonarchive/document"
	"github.com/chaisql/bsonarchive/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMarshalJSON(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("5f1b3b1b9c9d440000a1b2c3")
	require.NoError(t, err)

	tests := []struct {
		name     string
		v        document.Value
		expected string
	}{
		{"null", document.NewNullValue(), `null`},
		{"bool", document.NewBoolValue(true), `true`},
		{"int32", document.NewInt32Value(-10), `-10`},
		{"int64", document.NewInt64Value(1 << 40), `1099511627776`},
		{"double", document.NewDoubleValue(10.5), `10.5`},
		{"whole double", document.NewDoubleValue(3), `3.0`},
		{"big double", document.NewDoubleValue(1e20), `1e+20`},
		{"NaN", document.NewDoubleValue(math.NaN()), `{"$numberDouble": "NaN"}`},
		{"string", document.NewStringValue("a \"b\"\n"), `"a \"b\"\n"`},
		{"datetime", document.NewDateTimeValue(time.Date(2021, 1, 2, 3, 4, 5, 6_000_000, time.UTC)), `{"$date": "2021-01-02T03:04:05.006Z"}`},
		{"binary", document.NewBinaryValue(0x80, []byte("hi")), `{"$binary": {"base64": "aGk=", "subType": "80"}}`},
		{"oid", document.NewObjectIDValue(oid), `{"$oid": "5f1b3b1b9c9d440000a1b2c3"}`},
		{"regex", document.NewRegexValue("^a", "i"), `{"$regularExpression": {"pattern": "^a", "options": "i"}}`},
		{"timestamp", document.NewTimestampValue(1, 2), `{"$timestamp": {"t": 1, "i": 2}}`},
		{"document", document.NewDocumentValue(document.NewFieldBuffer().
			Add("name", document.NewStringValue("John")).
			Add("address", document.NewDocumentValue(document.NewFieldBuffer().
				Add("city", document.NewStringValue("Ajaccio")))).
			Add("friends", document.NewArrayValue(document.NewValueBuffer(
				document.NewStringValue("fred"),
				document.NewStringValue("jamie"))))),
			`{"name": "John", "address": {"city": "Ajaccio"}, "friends": ["fred", "jamie"]}`},
		{"empty", document.NewDocumentValue(document.NewFieldBuffer()), `{}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data, err := test.v.MarshalJSON()
			require.NoError(t, err)
			require.Equal(t, test.expected, string(data))
		})
	}
}

func TestUnmarshalJSON(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("5f1b3b1b9c9d440000a1b2c3")
	require.NoError(t, err)

	tests := []struct {
		name     string
		data     string
		expected document.Value
	}{
		{"null", `null`, document.NewNullValue()},
		{"bool", `false`, document.NewBoolValue(false)},
		{"integer", `10`, document.NewInt64Value(10)},
		{"double", `10.5`, document.NewDoubleValue(10.5)},
		{"overflowing integer", `100000000000000000000`, document.NewDoubleValue(1e20)},
		{"string", `"a\nb"`, document.NewStringValue("a\nb")},
		{"date string", `{"$date": "2021-01-02T03:04:05.006Z"}`, document.NewDateTimeValue(time.Date(2021, 1, 2, 3, 4, 5, 6_000_000, time.UTC))},
		{"date with offset", `{"$date": "2021-01-02T05:04:05+02:00"}`, document.NewDateTimeValue(time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC))},
		{"date millis", `{"$date": 1000}`, document.NewDateTimeValue(time.Unix(1, 0))},
		{"date numberLong", `{"$date": {"$numberLong": "1000"}}`, document.NewDateTimeValue(time.Unix(1, 0))},
		{"oid", `{"$oid": "5f1b3b1b9c9d440000a1b2c3"}`, document.NewObjectIDValue(oid)},
		{"binary", `{"$binary": {"base64": "aGk=", "subType": "80"}}`, document.NewBinaryValue(0x80, []byte("hi"))},
		{"regex", `{"$regularExpression": {"pattern": "^a", "options": "i"}}`, document.NewRegexValue("^a", "i")},
		{"timestamp", `{"$timestamp": {"t": 1, "i": 2}}`, document.NewTimestampValue(1, 2)},
		{"numberInt", `{"$numberInt": "7"}`, document.NewInt32Value(7)},
		{"numberDouble", `{"$numberDouble": "Infinity"}`, document.NewDoubleValue(math.Inf(1))},
		{"unknown operator", `{"$foo": 1}`, document.NewDocumentValue(document.NewFieldBuffer().Add("$foo", document.NewInt64Value(1)))},
		{"array", `[1, "a", []]`, document.NewArrayValue(document.NewValueBuffer(
			document.NewInt64Value(1),
			document.NewStringValue("a"),
			document.NewArrayValue(nil),
		))},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fb, err := document.NewFromJSON([]byte(`{"v": ` + test.data + `}`))
			require.NoError(t, err)

			v, err := fb.Get("v")
			require.NoError(t, err)
			if diff := cmp.Diff(test.expected, v, cmp.AllowUnexported(document.FieldBuffer{})); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnmarshalJSONErrors(t *testing.T) {
	tests := []string{
		`[1]`,
		`{"a": {"$oid": "zz"}}`,
		`{"a": {"$date": "not a date"}}`,
		`{"a": {"$date": true}}`,
		`{"a": {"$binary": {"base64": "!!", "subType": "00"}}}`,
		`{"a": {"$timestamp": {"t": -1, "i": 0}}}`,
		`{"a": {"$numberInt": "99999999999"}}`,
	}

	for _, test := range tests {
		t.Run(test, func(t *testing.T) {
			_, err := document.NewFromJSON([]byte(test))
			require.Error(t, err)
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	data := `{"a": 1, "b": 1.5, "c": "x", "d": [true, null, {"e": []}], "f": {"$date": "2021-01-02T03:04:05.006Z"}, "g": {"$oid": "5f1b3b1b9c9d440000a1b2c3"}, "h": {}}`

	fb, err := document.NewFromJSON([]byte(data))
	require.NoError(t, err)

	got, err := fb.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, data, string(got))
	require.Equal(t, data, string(got))
}

func TestNewManyFromJSON(t *testing.T) {
	fbs, err := document.NewManyFromJSON([]byte(` {"a": 1} `))
	require.NoError(t, err)
	require.Len(t, fbs, 1)

	fbs, err = document.NewManyFromJSON([]byte(`[{"a": 1}, {"a": 2}, {}]`))
	require.NoError(t, err)
	require.Len(t, fbs, 3)
	v, err := fbs[1].Get("a")
	require.NoError(t, err)
	require.Equal(t, document.NewInt64Value(2), v)

	_, err = document.NewManyFromJSON([]byte(`[{"a": 1}, 2]`))
	require.Error(t, err)
}

func TestValueBufferUnmarshalJSON(t *testing.T) {
	vb := testutil.MakeArray(t, `[1, {"a": "b"}, null]`)
	require.Equal(t, 3, vb.Len())
	require.Equal(t, document.NewInt64Value(1), vb[0])
	require.Equal(t, document.NewNullValue(), vb[2])

	a, err := vb[1].Document().Get("a")
	require.NoError(t, err)
	require.Equal(t, document.NewStringValue("b"), a)

	var bad document.ValueBuffer
	require.Error(t, bad.UnmarshalJSON([]byte(`{"a": 1}`)))
}
