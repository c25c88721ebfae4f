package encoding

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

var (
	// ErrTypeMismatch is returned when extracting a value whose stored type
	// differs from the requested one.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrKeyNotFound is returned when a key is absent from a document.
	ErrKeyNotFound = errors.New("key not found")
)

func mismatch(want bsontype.Type, v bsoncore.Value) error {
	return errors.Wrapf(ErrTypeMismatch, "expected %s, got %s", want, TypeName(v.Type))
}

// TypeName returns a readable name for t, including the types
// bsontype doesn't know about.
func TypeName(t bsontype.Type) string {
	if t == 0 {
		return "nothing"
	}
	return t.String()
}

// Lookup returns the element stored under key in doc.
func Lookup(doc bsoncore.Document, key string) (bsoncore.Value, error) {
	v, err := doc.LookupErr(key)
	if err != nil {
		if errors.Is(err, bsoncore.ErrElementNotFound) {
			return bsoncore.Value{}, errors.Wrapf(ErrKeyNotFound, "field %q", key)
		}
		return bsoncore.Value{}, errors.WithStack(err)
	}

	return v, nil
}

// Values returns the elements of arr in order.
func Values(arr bsoncore.Array) ([]bsoncore.Value, error) {
	vs, err := arr.Values()
	if err != nil {
		return nil, errors.Wrap(err, "malformed array")
	}
	return vs, nil
}

// AsDocument returns v as an embedded document.
func AsDocument(v bsoncore.Value) (bsoncore.Document, error) {
	doc, ok := v.DocumentOK()
	if !ok {
		return nil, mismatch(bsontype.EmbeddedDocument, v)
	}
	return doc, nil
}

// AsArray returns v as an array.
func AsArray(v bsoncore.Value) (bsoncore.Array, error) {
	arr, ok := v.ArrayOK()
	if !ok {
		return nil, mismatch(bsontype.Array, v)
	}
	return arr, nil
}

// AsDouble returns v as a float64.
func AsDouble(v bsoncore.Value) (float64, error) {
	f, ok := v.DoubleOK()
	if !ok {
		return 0, mismatch(bsontype.Double, v)
	}
	return f, nil
}

// AsString returns v as a string.
func AsString(v bsoncore.Value) (string, error) {
	s, ok := v.StringValueOK()
	if !ok {
		return "", mismatch(bsontype.String, v)
	}
	return s, nil
}

// AsBoolean returns v as a bool.
func AsBoolean(v bsoncore.Value) (bool, error) {
	x, ok := v.BooleanOK()
	if !ok {
		return false, mismatch(bsontype.Boolean, v)
	}
	return x, nil
}

// AsInt32 returns v as an int32.
func AsInt32(v bsoncore.Value) (int32, error) {
	i, ok := v.Int32OK()
	if !ok {
		return 0, mismatch(bsontype.Int32, v)
	}
	return i, nil
}

// AsInt64 returns v as an int64.
func AsInt64(v bsoncore.Value) (int64, error) {
	i, ok := v.Int64OK()
	if !ok {
		return 0, mismatch(bsontype.Int64, v)
	}
	return i, nil
}

// AsDateTime returns v as a UTC time.
func AsDateTime(v bsoncore.Value) (time.Time, error) {
	dt, ok := v.DateTimeOK()
	if !ok {
		return time.Time{}, mismatch(bsontype.DateTime, v)
	}
	return time.UnixMilli(dt).UTC(), nil
}

// AsBinary returns the subtype and data of a binary element.
// The returned slice points into the document.
func AsBinary(v bsoncore.Value) (byte, []byte, error) {
	subtype, data, ok := v.BinaryOK()
	if !ok {
		return 0, nil, mismatch(bsontype.Binary, v)
	}
	return subtype, data, nil
}

// AsObjectID returns v as an ObjectId.
func AsObjectID(v bsoncore.Value) (primitive.ObjectID, error) {
	oid, ok := v.ObjectIDOK()
	if !ok {
		return primitive.NilObjectID, mismatch(bsontype.ObjectID, v)
	}
	return oid, nil
}

// AsNull makes sure v is null.
func AsNull(v bsoncore.Value) error {
	if v.Type != bsontype.Null {
		return mismatch(bsontype.Null, v)
	}
	return nil
}

// AsRegex returns the pattern and options of a regular expression.
func AsRegex(v bsoncore.Value) (string, string, error) {
	pattern, options, ok := v.RegexOK()
	if !ok {
		return "", "", mismatch(bsontype.Regex, v)
	}
	return pattern, options, nil
}

// AsTimestamp returns the two components of a BSON internal timestamp.
func AsTimestamp(v bsoncore.Value) (uint32, uint32, error) {
	t, i, ok := v.TimestampOK()
	if !ok {
		return 0, 0, mismatch(bsontype.Timestamp, v)
	}
	return t, i, nil
}
