package document

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Type represents the type of a value.
type Type uint8

// List of supported value types.
const (
	NullValue Type = iota + 1
	BoolValue
	Int32Value
	Int64Value
	DoubleValue
	StringValue
	DateTimeValue
	BinaryValue
	ObjectIDValue
	RegexValue
	TimestampValue

	DocumentValue
	ArrayValue
)

func (t Type) String() string {
	switch t {
	case NullValue:
		return "null"
	case BoolValue:
		return "bool"
	case Int32Value:
		return "int32"
	case Int64Value:
		return "int64"
	case DoubleValue:
		return "double"
	case StringValue:
		return "string"
	case DateTimeValue:
		return "datetime"
	case BinaryValue:
		return "binary"
	case ObjectIDValue:
		return "objectId"
	case RegexValue:
		return "regex"
	case TimestampValue:
		return "timestamp"
	case DocumentValue:
		return "document"
	case ArrayValue:
		return "array"
	}

	return ""
}

// IsNumber returns true if t is either an integer or a double.
func (t Type) IsNumber() bool {
	return t == Int32Value || t == Int64Value || t == DoubleValue
}

// A Value stores data alongside its type.
//
// V holds, depending on Type: nil, bool, int32, int64, float64, string,
// time.Time, primitive.Binary, primitive.ObjectID, primitive.Regex,
// primitive.Timestamp, *FieldBuffer or ValueBuffer.
type Value struct {
	Type Type
	V    any
}

// NewNullValue returns a null value.
func NewNullValue() Value {
	return Value{Type: NullValue}
}

// NewBoolValue encodes x as a boolean value.
func NewBoolValue(x bool) Value {
	return Value{Type: BoolValue, V: x}
}

// NewInt32Value encodes x as a 32-bit integer value.
func NewInt32Value(x int32) Value {
	return Value{Type: Int32Value, V: x}
}

// NewInt64Value encodes x as a 64-bit integer value.
func NewInt64Value(x int64) Value {
	return Value{Type: Int64Value, V: x}
}

// NewDoubleValue encodes x as a double value.
func NewDoubleValue(x float64) Value {
	return Value{Type: DoubleValue, V: x}
}

// NewStringValue encodes x as a string value.
func NewStringValue(x string) Value {
	return Value{Type: StringValue, V: x}
}

// NewDateTimeValue encodes t as a datetime value, in UTC and truncated
// to the millisecond.
func NewDateTimeValue(t time.Time) Value {
	return Value{Type: DateTimeValue, V: t.UTC().Truncate(time.Millisecond)}
}

// NewBinaryValue encodes data as a binary value of the given subtype.
func NewBinaryValue(subtype byte, data []byte) Value {
	return Value{Type: BinaryValue, V: primitive.Binary{Subtype: subtype, Data: data}}
}

// NewObjectIDValue encodes oid as an ObjectId value.
func NewObjectIDValue(oid primitive.ObjectID) Value {
	return Value{Type: ObjectIDValue, V: oid}
}

// NewRegexValue encodes a regular expression value.
func NewRegexValue(pattern, options string) Value {
	return Value{Type: RegexValue, V: primitive.Regex{Pattern: pattern, Options: options}}
}

// NewTimestampValue encodes a BSON internal timestamp value.
func NewTimestampValue(t, i uint32) Value {
	return Value{Type: TimestampValue, V: primitive.Timestamp{T: t, I: i}}
}

// NewDocumentValue encodes fb as a document value.
func NewDocumentValue(fb *FieldBuffer) Value {
	return Value{Type: DocumentValue, V: fb}
}

// NewArrayValue encodes vb as an array value.
func NewArrayValue(vb ValueBuffer) Value {
	return Value{Type: ArrayValue, V: vb}
}

// String returns the JSON representation of v.
func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// Bool returns the boolean stored in v.
// It panics if v is not a boolean.
func (v Value) Bool() bool {
	return v.V.(bool)
}

// Time returns the datetime stored in v.
// It panics if v is not a datetime.
func (v Value) Time() time.Time {
	return v.V.(time.Time)
}

// Binary returns the binary value stored in v.
// It panics if v is not a binary value.
func (v Value) Binary() primitive.Binary {
	return v.V.(primitive.Binary)
}

// ObjectID returns the ObjectId stored in v.
// It panics if v is not an ObjectId.
func (v Value) ObjectID() primitive.ObjectID {
	return v.V.(primitive.ObjectID)
}

// Regex returns the regular expression stored in v.
// It panics if v is not a regular expression.
func (v Value) Regex() primitive.Regex {
	return v.V.(primitive.Regex)
}

// Timestamp returns the BSON timestamp stored in v.
// It panics if v is not a timestamp.
func (v Value) Timestamp() primitive.Timestamp {
	return v.V.(primitive.Timestamp)
}

// Document returns the document stored in v.
// It panics if v is not a document.
func (v Value) Document() *FieldBuffer {
	return v.V.(*FieldBuffer)
}

// Array returns the array stored in v.
// It panics if v is not an array.
func (v Value) Array() ValueBuffer {
	return v.V.(ValueBuffer)
}
