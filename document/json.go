package document

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
	"github.com/cockroachdb/errors"
	"github.com/golang-module/carbon/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// dateFormat is the layout of the dates of relaxed extended JSON.
const dateFormat = "2006-01-02T15:04:05.000Z07:00"

// NewFromJSON parses a JSON object into a FieldBuffer.
func NewFromJSON(data []byte) (*FieldBuffer, error) {
	fb := NewFieldBuffer()
	err := fb.UnmarshalJSON(data)
	if err != nil {
		return nil, err
	}

	return fb, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
// Objects using the extended JSON notation, like {"$date": "..."} or
// {"$oid": "..."}, are converted to the corresponding BSON type.
func (fb *FieldBuffer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return errors.New("expected a JSON object")
	}

	return jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, offset int) error {
		v, err := parseJSONValue(dataType, value)
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}

		fb.Add(string(key), v)
		return nil
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (vb *ValueBuffer) UnmarshalJSON(data []byte) error {
	var err error
	_, perr := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, offset int, _ error) {
		if err != nil {
			return
		}

		var v Value
		v, err = parseJSONValue(dataType, value)
		if err != nil {
			return
		}

		*vb = vb.Append(v)
	})
	if err != nil {
		return err
	}
	if perr != nil {
		return errors.WithStack(perr)
	}

	return nil
}

func parseJSONValue(dataType jsonparser.ValueType, data []byte) (Value, error) {
	switch dataType {
	case jsonparser.Null:
		return NewNullValue(), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(data)
		if err != nil {
			return Value{}, err
		}
		return NewBoolValue(b), nil
	case jsonparser.Number:
		i, err := jsonparser.ParseInt(data)
		if err != nil {
			// if it's too big to fit in an int64, let's try parsing this as a floating point number
			f, err := jsonparser.ParseFloat(data)
			if err != nil {
				return Value{}, err
			}

			return NewDoubleValue(f), nil
		}

		return NewInt64Value(i), nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return Value{}, err
		}
		return NewStringValue(s), nil
	case jsonparser.Array:
		var vb ValueBuffer
		err := vb.UnmarshalJSON(data)
		if err != nil {
			return Value{}, err
		}

		return NewArrayValue(vb), nil
	case jsonparser.Object:
		fb := NewFieldBuffer()
		err := fb.UnmarshalJSON(data)
		if err != nil {
			return Value{}, err
		}

		if fb.Len() == 1 && len(fb.fields[0].Field) > 0 && fb.fields[0].Field[0] == '$' {
			return parseExtendedJSON(fb.fields[0].Field, fb.fields[0].Value)
		}

		return NewDocumentValue(fb), nil
	}

	return Value{}, errors.Newf("unexpected JSON value %q", data)
}

// parseExtendedJSON converts the single field object {key: v} to the BSON
// value it denotes. Objects whose key is not an extended JSON operator are
// returned as documents.
func parseExtendedJSON(key string, v Value) (Value, error) {
	switch key {
	case "$date":
		return parseDate(v)
	case "$oid":
		if v.Type != StringValue {
			break
		}
		oid, err := primitive.ObjectIDFromHex(v.V.(string))
		if err != nil {
			return Value{}, errors.Wrap(err, "invalid $oid")
		}
		return NewObjectIDValue(oid), nil
	case "$binary":
		if v.Type != DocumentValue {
			break
		}
		return parseBinary(v.Document())
	case "$regularExpression":
		if v.Type != DocumentValue {
			break
		}
		pattern, err := stringField(v.Document(), "pattern")
		if err != nil {
			return Value{}, err
		}
		options, err := stringField(v.Document(), "options")
		if err != nil {
			return Value{}, err
		}
		return NewRegexValue(pattern, options), nil
	case "$timestamp":
		if v.Type != DocumentValue {
			break
		}
		t, err := uint32Field(v.Document(), "t")
		if err != nil {
			return Value{}, err
		}
		i, err := uint32Field(v.Document(), "i")
		if err != nil {
			return Value{}, err
		}
		return NewTimestampValue(t, i), nil
	case "$numberInt":
		if v.Type != StringValue {
			break
		}
		i, err := strconv.ParseInt(v.V.(string), 10, 32)
		if err != nil {
			return Value{}, errors.Wrap(err, "invalid $numberInt")
		}
		return NewInt32Value(int32(i)), nil
	case "$numberLong":
		if v.Type != StringValue {
			break
		}
		i, err := strconv.ParseInt(v.V.(string), 10, 64)
		if err != nil {
			return Value{}, errors.Wrap(err, "invalid $numberLong")
		}
		return NewInt64Value(i), nil
	case "$numberDouble":
		if v.Type != StringValue {
			break
		}
		f, err := strconv.ParseFloat(v.V.(string), 64)
		if err != nil {
			return Value{}, errors.Wrap(err, "invalid $numberDouble")
		}
		return NewDoubleValue(f), nil
	default:
		return NewDocumentValue(NewFieldBuffer().Add(key, v)), nil
	}

	return Value{}, errors.Newf("invalid %s value of type %s", key, v.Type)
}

// parseDate parses the value of a $date operator: either a date string
// or a number of milliseconds since the epoch.
func parseDate(v Value) (Value, error) {
	switch v.Type {
	case StringValue:
		c := carbon.Parse(v.V.(string), "UTC")
		if c.Error != nil {
			return Value{}, errors.Wrapf(c.Error, "invalid $date %q", v.V)
		}
		return NewDateTimeValue(c.ToStdTime()), nil
	case Int64Value:
		return NewDateTimeValue(time.UnixMilli(v.V.(int64))), nil
	}

	return Value{}, errors.Newf("invalid $date value of type %s", v.Type)
}

func parseBinary(fb *FieldBuffer) (Value, error) {
	b64, err := stringField(fb, "base64")
	if err != nil {
		return Value{}, err
	}
	st, err := stringField(fb, "subType")
	if err != nil {
		return Value{}, err
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Value{}, errors.Wrap(err, "invalid $binary")
	}
	subtype, err := strconv.ParseUint(st, 16, 8)
	if err != nil {
		return Value{}, errors.Wrap(err, "invalid $binary subtype")
	}

	return NewBinaryValue(byte(subtype), data), nil
}

func stringField(fb *FieldBuffer, name string) (string, error) {
	v, err := fb.Get(name)
	if err != nil {
		return "", err
	}
	if v.Type != StringValue {
		return "", errors.Newf("field %q must be a string, got %s", name, v.Type)
	}

	return v.V.(string), nil
}

func uint32Field(fb *FieldBuffer, name string) (uint32, error) {
	v, err := fb.Get(name)
	if err != nil {
		return 0, err
	}
	if v.Type != Int64Value {
		return 0, errors.Newf("field %q must be an integer, got %s", name, v.Type)
	}

	i := v.V.(int64)
	if i < 0 || i > math.MaxUint32 {
		return 0, errors.Newf("field %q out of range: %d", name, i)
	}

	return uint32(i), nil
}

// MarshalJSON implements the json.Marshaler interface.
// Values that have no JSON equivalent are written using the relaxed
// extended JSON notation.
func (fb *FieldBuffer) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')
	for i, fv := range fb.fields {
		if i > 0 {
			buf.WriteString(", ")
		}

		writeJSONString(&buf, fv.Field)
		buf.WriteString(": ")

		data, err := fv.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// MarshalJSON implements the json.Marshaler interface.
func (vb ValueBuffer) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('[')
	for i, v := range vb {
		if i > 0 {
			buf.WriteString(", ")
		}

		data, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')

	return buf.Bytes(), nil
}

// MarshalJSON implements the json.Marshaler interface.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	switch v.Type {
	case NullValue:
		return []byte("null"), nil
	case BoolValue:
		return strconv.AppendBool(nil, v.Bool()), nil
	case Int32Value:
		return strconv.AppendInt(nil, int64(v.V.(int32)), 10), nil
	case Int64Value:
		return strconv.AppendInt(nil, v.V.(int64), 10), nil
	case DoubleValue:
		return marshalDouble(v.V.(float64)), nil
	case StringValue:
		writeJSONString(&buf, v.V.(string))
	case DateTimeValue:
		buf.WriteString(`{"$date": `)
		writeJSONString(&buf, v.Time().UTC().Format(dateFormat))
		buf.WriteByte('}')
	case BinaryValue:
		bin := v.Binary()
		buf.WriteString(`{"$binary": {"base64": "`)
		buf.WriteString(base64.StdEncoding.EncodeToString(bin.Data))
		buf.WriteString(`", "subType": "`)
		buf.WriteString(hexByte(bin.Subtype))
		buf.WriteString(`"}}`)
	case ObjectIDValue:
		buf.WriteString(`{"$oid": "`)
		buf.WriteString(v.ObjectID().Hex())
		buf.WriteString(`"}`)
	case RegexValue:
		re := v.Regex()
		buf.WriteString(`{"$regularExpression": {"pattern": `)
		writeJSONString(&buf, re.Pattern)
		buf.WriteString(`, "options": `)
		writeJSONString(&buf, re.Options)
		buf.WriteString(`}}`)
	case TimestampValue:
		ts := v.Timestamp()
		buf.WriteString(`{"$timestamp": {"t": `)
		buf.WriteString(strconv.FormatUint(uint64(ts.T), 10))
		buf.WriteString(`, "i": `)
		buf.WriteString(strconv.FormatUint(uint64(ts.I), 10))
		buf.WriteString(`}}`)
	case DocumentValue:
		return v.Document().MarshalJSON()
	case ArrayValue:
		return v.Array().MarshalJSON()
	default:
		return nil, errors.Newf("cannot marshal a value of type %q", v.Type)
	}

	return buf.Bytes(), nil
}

// marshalDouble writes f so that it is parsed back as a double.
func marshalDouble(f float64) []byte {
	switch {
	case math.IsNaN(f):
		return []byte(`{"$numberDouble": "NaN"}`)
	case math.IsInf(f, 1):
		return []byte(`{"$numberDouble": "Infinity"}`)
	case math.IsInf(f, -1):
		return []byte(`{"$numberDouble": "-Infinity"}`)
	}

	abs := math.Abs(f)
	fmt := byte('f')
	if abs != 0 {
		if abs < 1e-6 || abs >= 1e15 {
			fmt = 'e'
		}
	}

	// By default the precision is -1 to use the smallest number of digits.
	// See https://pkg.go.dev/strconv#FormatFloat
	data := strconv.AppendFloat(nil, f, fmt, -1, 64)
	if fmt == 'f' && bytes.IndexByte(data, '.') == -1 {
		data = append(data, ".0"...)
	}

	return data
}

func writeJSONString(buf *bytes.Buffer, s string) {
	// json.Marshal never fails on strings
	data, _ := json.Marshal(s)
	buf.Write(data)
}

func hexByte(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0f]})
}

// NewManyFromJSON parses either a single JSON object or a JSON array of
// objects.
func NewManyFromJSON(data []byte) ([]*FieldBuffer, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		fb, err := NewFromJSON(data)
		if err != nil {
			return nil, err
		}
		return []*FieldBuffer{fb}, nil
	}

	var fbs []*FieldBuffer
	var err error
	_, perr := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, offset int, _ error) {
		if err != nil {
			return
		}
		if dataType != jsonparser.Object {
			err = errors.Newf("expected a JSON object at offset %d, got %s", offset, dataType)
			return
		}

		var fb *FieldBuffer
		fb, err = NewFromJSON(value)
		if err != nil {
			return
		}
		fbs = append(fbs, fb)
	})
	if err != nil {
		return nil, err
	}
	if perr != nil {
		return nil, errors.WithStack(perr)
	}

	return fbs, nil
}
