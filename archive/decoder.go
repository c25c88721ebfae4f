package archive

import (
	"io"
	"time"

	"github.com/chaisql/bsonarchive/internal/encoding"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Decoder reads a stream of BSON documents, one per root container.
type Decoder struct {
	opts  *Options
	views []bsoncore.Document
	cur   int

	stack       []scope
	nextName    string
	hasNextName bool

	err error
}

// NewDecoder reads every document from r and returns a Decoder positioned
// before the first one. r is not used after NewDecoder returns.
// If opts is nil, default options are used.
func NewDecoder(r io.Reader, opts *Options) (*Decoder, error) {
	opts = opts.withDefaults()

	views, err := encoding.ReadDocuments(r, opts.MaxDocumentSize, opts.Validate)
	if err != nil {
		return nil, err
	}

	return &Decoder{
		opts:  opts,
		views: views,
		stack: []scope{{state: StateRoot}},
	}, nil
}

// Len returns the number of root documents read from the input.
func (d *Decoder) Len() int {
	return len(d.views)
}

// More reports whether there is a root document left to read.
func (d *Decoder) More() bool {
	return d.err == nil && d.State() == StateRoot && d.cur < len(d.views)
}

// Depth returns the number of levels of the stack, root included.
func (d *Decoder) Depth() int {
	return len(d.stack)
}

// State returns the state of the innermost level.
func (d *Decoder) State() NodeState {
	return d.top().state
}

// Err returns the error that stopped the decoder, if any.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) top() *scope {
	return &d.stack[len(d.stack)-1]
}

func (d *Decoder) fail(err error) error {
	if d.err == nil {
		d.err = err
	}
	return err
}

// SetNextName sets the name of the next value loaded.
// The last call before a value is loaded wins.
func (d *Decoder) SetNextName(name string) {
	d.nextName = name
	d.hasNextName = true
}

// search resolves the next element to read and consumes it.
// The pending name is only cleared if the element was found.
func (d *Decoder) search() (bsoncore.Value, error) {
	if d.err != nil {
		return bsoncore.Value{}, d.err
	}

	v, next, err := resolve(*d.top(), d.opts.NamePrefix, d.nextName, d.hasNextName)
	if err != nil {
		return bsoncore.Value{}, d.fail(err)
	}

	*d.top() = next
	d.nextName, d.hasNextName = "", false
	return v, nil
}

// peek resolves the next element without consuming it.
func (d *Decoder) peek() (bsoncore.Value, error) {
	if d.err != nil {
		return bsoncore.Value{}, d.err
	}

	v, _, err := resolve(*d.top(), d.opts.NamePrefix, d.nextName, d.hasNextName)
	if err != nil {
		return bsoncore.Value{}, d.fail(err)
	}

	return v, nil
}

// StartNode enters the next container. At the root, it enters the
// current root document. Anywhere else, the next element must be an
// embedded document or an array.
func (d *Decoder) StartNode() error {
	if d.err != nil {
		return d.err
	}

	if d.State() == StateRoot {
		d.nextName, d.hasNextName = "", false

		if d.cur >= len(d.views) {
			return d.fail(errors.Wrapf(ErrOutOfBounds, "no document left in input of %d documents", len(d.views)))
		}

		d.stack = append(d.stack, scope{state: StateInObject, doc: d.views[d.cur]})
		return nil
	}

	v, err := d.search()
	if err != nil {
		return err
	}

	switch v.Type {
	case bsontype.EmbeddedDocument:
		doc, err := encoding.AsDocument(v)
		if err != nil {
			return d.fail(err)
		}
		d.stack = append(d.stack, scope{state: StateInEmbeddedObject, doc: doc})
	case bsontype.Array:
		arr, err := encoding.AsArray(v)
		if err != nil {
			return d.fail(err)
		}
		values, err := encoding.Values(arr)
		if err != nil {
			return d.fail(err)
		}
		d.stack = append(d.stack, scope{state: StateInEmbeddedArray, values: values})
	default:
		return d.fail(structuref("cannot enter a value of type %s", encoding.TypeName(v.Type)))
	}

	return nil
}

// FinishNode leaves the innermost container. Leaving a root document
// moves the decoder to the next one.
func (d *Decoder) FinishNode() error {
	if d.err != nil {
		return d.err
	}

	if d.State() == StateRoot {
		return d.fail(structuref("no container to finish"))
	}

	d.stack = d.stack[:len(d.stack)-1]
	if d.State() == StateRoot {
		d.cur++
	}

	return nil
}

// LoadSize returns the number of elements of the array being read.
func (d *Decoder) LoadSize() (int, error) {
	if d.err != nil {
		return 0, d.err
	}

	s := d.top()
	if s.state != StateInEmbeddedArray {
		return 0, d.fail(structuref("cannot load the size of a %s level", s.state))
	}

	return len(s.values), nil
}

// IsNull reports whether the next element is null, without consuming it.
func (d *Decoder) IsNull() (bool, error) {
	v, err := d.peek()
	if err != nil {
		return false, err
	}

	return v.Type == bsontype.Null, nil
}

// Type returns the type of the next element, without consuming it.
func (d *Decoder) Type() (bsontype.Type, error) {
	v, err := d.peek()
	if err != nil {
		return 0, err
	}

	return v.Type, nil
}

// LoadBool loads a boolean.
func (d *Decoder) LoadBool() (bool, error) {
	v, err := d.search()
	if err != nil {
		return false, err
	}
	b, err := encoding.AsBoolean(v)
	return b, d.check(err)
}

// LoadInt32 loads a 32-bit integer.
func (d *Decoder) LoadInt32() (int32, error) {
	v, err := d.search()
	if err != nil {
		return 0, err
	}
	i, err := encoding.AsInt32(v)
	return i, d.check(err)
}

// LoadInt64 loads a 64-bit integer.
func (d *Decoder) LoadInt64() (int64, error) {
	v, err := d.search()
	if err != nil {
		return 0, err
	}
	i, err := encoding.AsInt64(v)
	return i, d.check(err)
}

// LoadDouble loads a 64-bit floating point number.
func (d *Decoder) LoadDouble() (float64, error) {
	v, err := d.search()
	if err != nil {
		return 0, err
	}
	f, err := encoding.AsDouble(v)
	return f, d.check(err)
}

// LoadString loads a UTF-8 string.
func (d *Decoder) LoadString() (string, error) {
	v, err := d.search()
	if err != nil {
		return "", err
	}
	s, err := encoding.AsString(v)
	return s, d.check(err)
}

// LoadTime loads a datetime, in UTC.
func (d *Decoder) LoadTime() (time.Time, error) {
	v, err := d.search()
	if err != nil {
		return time.Time{}, err
	}
	t, err := encoding.AsDateTime(v)
	return t, d.check(err)
}

// LoadBinary loads a binary blob. The returned slice is a copy.
func (d *Decoder) LoadBinary() (byte, []byte, error) {
	v, err := d.search()
	if err != nil {
		return 0, nil, err
	}
	subtype, data, err := encoding.AsBinary(v)
	if err != nil {
		return 0, nil, d.check(err)
	}
	return subtype, append([]byte(nil), data...), nil
}

// LoadObjectID loads an ObjectId.
func (d *Decoder) LoadObjectID() (primitive.ObjectID, error) {
	v, err := d.search()
	if err != nil {
		return primitive.NilObjectID, err
	}
	oid, err := encoding.AsObjectID(v)
	return oid, d.check(err)
}

// LoadNull consumes a null value.
func (d *Decoder) LoadNull() error {
	v, err := d.search()
	if err != nil {
		return err
	}
	return d.check(encoding.AsNull(v))
}

// LoadRegex loads the pattern and options of a regular expression.
func (d *Decoder) LoadRegex() (string, string, error) {
	v, err := d.search()
	if err != nil {
		return "", "", err
	}
	pattern, options, err := encoding.AsRegex(v)
	return pattern, options, d.check(err)
}

// LoadTimestamp loads a BSON internal timestamp.
func (d *Decoder) LoadTimestamp() (uint32, uint32, error) {
	v, err := d.search()
	if err != nil {
		return 0, 0, err
	}
	t, i, err := encoding.AsTimestamp(v)
	return t, i, d.check(err)
}

func (d *Decoder) check(err error) error {
	if err != nil {
		return d.fail(err)
	}
	return nil
}
