package document

import (
	"io"

	"github.com/chaisql/bsonarchive/archive"
	"github.com/chaisql/bsonarchive/internal/encoding"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// SaveArchive saves the fields of fb, in order, as a document.
func (fb *FieldBuffer) SaveArchive(out archive.Output) error {
	err := out.StartNode()
	if err != nil {
		return err
	}

	for _, fv := range fb.fields {
		out.SetNextName(fv.Field)

		err = fv.Value.SaveArchive(out)
		if err != nil {
			return errors.Wrapf(err, "field %q", fv.Field)
		}
	}

	return out.FinishNode()
}

// SaveArchive saves the values of vb as an array.
func (vb ValueBuffer) SaveArchive(out archive.Output) error {
	err := out.StartNode()
	if err != nil {
		return err
	}

	err = out.MakeArray()
	if err != nil {
		return err
	}

	for i, v := range vb {
		err = v.SaveArchive(out)
		if err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
	}

	return out.FinishNode()
}

// SaveArchive saves v. Documents and arrays are saved as containers,
// other values as scalars.
func (v Value) SaveArchive(out archive.Output) error {
	switch v.Type {
	case DocumentValue:
		return v.V.(*FieldBuffer).SaveArchive(out)
	case ArrayValue:
		return v.V.(ValueBuffer).SaveArchive(out)
	}

	err := out.WriteName()
	if err != nil {
		return err
	}

	switch v.Type {
	case NullValue:
		return out.SaveNull()
	case BoolValue:
		return out.SaveBool(v.Bool())
	case Int32Value:
		return out.SaveInt32(v.V.(int32))
	case Int64Value:
		return out.SaveInt64(v.V.(int64))
	case DoubleValue:
		return out.SaveDouble(v.V.(float64))
	case StringValue:
		return out.SaveString(v.V.(string))
	case DateTimeValue:
		return out.SaveTime(v.Time())
	case BinaryValue:
		bin := v.Binary()
		return out.SaveBinary(bin.Subtype, bin.Data)
	case ObjectIDValue:
		return out.SaveObjectID(v.ObjectID())
	case RegexValue:
		re := v.Regex()
		return out.SaveRegex(re.Pattern, re.Options)
	case TimestampValue:
		ts := v.Timestamp()
		return out.SaveTimestamp(ts.T, ts.I)
	}

	return errors.Newf("cannot save a value of type %q", v.Type)
}

// FromBSON converts a BSON document to a FieldBuffer.
// The returned buffer doesn't reference doc.
func FromBSON(doc bsoncore.Document) (*FieldBuffer, error) {
	elems, err := doc.Elements()
	if err != nil {
		return nil, errors.Wrap(err, "malformed document")
	}

	fb := NewFieldBuffer()
	for _, elem := range elems {
		v, err := fromBSONValue(elem.Value())
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", elem.Key())
		}

		fb.Add(elem.Key(), v)
	}

	return fb, nil
}

func arrayFromBSON(arr bsoncore.Array) (ValueBuffer, error) {
	values, err := encoding.Values(arr)
	if err != nil {
		return nil, err
	}

	vb := make(ValueBuffer, 0, len(values))
	for i, bv := range values {
		v, err := fromBSONValue(bv)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}

		vb = vb.Append(v)
	}

	return vb, nil
}

func fromBSONValue(bv bsoncore.Value) (Value, error) {
	switch bv.Type {
	case bsontype.Null:
		return NewNullValue(), nil
	case bsontype.Boolean:
		b, err := encoding.AsBoolean(bv)
		return NewBoolValue(b), err
	case bsontype.Int32:
		i, err := encoding.AsInt32(bv)
		return NewInt32Value(i), err
	case bsontype.Int64:
		i, err := encoding.AsInt64(bv)
		return NewInt64Value(i), err
	case bsontype.Double:
		f, err := encoding.AsDouble(bv)
		return NewDoubleValue(f), err
	case bsontype.String:
		s, err := encoding.AsString(bv)
		return NewStringValue(s), err
	case bsontype.DateTime:
		t, err := encoding.AsDateTime(bv)
		return NewDateTimeValue(t), err
	case bsontype.Binary:
		subtype, data, err := encoding.AsBinary(bv)
		return NewBinaryValue(subtype, append([]byte(nil), data...)), err
	case bsontype.ObjectID:
		oid, err := encoding.AsObjectID(bv)
		return NewObjectIDValue(oid), err
	case bsontype.Regex:
		pattern, options, err := encoding.AsRegex(bv)
		return NewRegexValue(pattern, options), err
	case bsontype.Timestamp:
		t, i, err := encoding.AsTimestamp(bv)
		return NewTimestampValue(t, i), err
	case bsontype.EmbeddedDocument:
		doc, err := encoding.AsDocument(bv)
		if err != nil {
			return Value{}, err
		}
		fb, err := FromBSON(doc)
		if err != nil {
			return Value{}, err
		}
		return NewDocumentValue(fb), nil
	case bsontype.Array:
		arr, err := encoding.AsArray(bv)
		if err != nil {
			return Value{}, err
		}
		vb, err := arrayFromBSON(arr)
		if err != nil {
			return Value{}, err
		}
		return NewArrayValue(vb), nil
	}

	return Value{}, errors.Newf("unsupported BSON type %s", encoding.TypeName(bv.Type))
}

// ReadBSON reads all the documents of a BSON stream.
// Documents larger than maxSize are rejected, a maxSize of 0 meaning
// the default maximum size.
func ReadBSON(r io.Reader, maxSize int) ([]*FieldBuffer, error) {
	if maxSize <= 0 {
		maxSize = encoding.MaxDocumentSize
	}

	docs, err := encoding.ReadDocuments(r, maxSize, true)
	if err != nil {
		return nil, err
	}

	fbs := make([]*FieldBuffer, 0, len(docs))
	for i, doc := range docs {
		fb, err := FromBSON(doc)
		if err != nil {
			return nil, errors.Wrapf(err, "document %d", i)
		}
		fbs = append(fbs, fb)
	}

	return fbs, nil
}
