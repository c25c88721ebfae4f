package archive

import (
	"io"
	"strconv"
	"time"

	"github.com/chaisql/bsonarchive/internal/encoding"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type encoderFrame struct {
	kind NodeKind
	// counter used to name elements saved without a name
	names uint32
}

// Encoder writes a stream of BSON documents, one per root container.
type Encoder struct {
	w       io.Writer
	opts    *Options
	builder *encoding.Builder

	stack       []encoderFrame
	nextName    string
	hasNextName bool

	err error
}

// NewEncoder creates an Encoder that writes to w.
// If opts is nil, default options are used.
func NewEncoder(w io.Writer, opts *Options) *Encoder {
	return &Encoder{
		w:       w,
		opts:    opts.withDefaults(),
		builder: encoding.NewBuilder(),
		stack:   []encoderFrame{{kind: Root}},
	}
}

// Depth returns the number of frames on the node stack, root included.
func (e *Encoder) Depth() int {
	return len(e.stack)
}

// Kind returns the kind of the innermost container.
func (e *Encoder) Kind() NodeKind {
	return e.top().kind
}

// Err returns the error that stopped the encoder, if any.
func (e *Encoder) Err() error {
	return e.err
}

func (e *Encoder) top() *encoderFrame {
	return &e.stack[len(e.stack)-1]
}

func (e *Encoder) fail(err error) error {
	if e.err == nil {
		e.err = err
	}
	return err
}

// SetNextName sets the name of the next value saved.
// The last call before a value is saved wins.
func (e *Encoder) SetNextName(name string) {
	e.nextName = name
	e.hasNextName = true
}

func (e *Encoder) takeName() (string, bool) {
	name, ok := e.nextName, e.hasNextName
	e.nextName, e.hasNextName = "", false
	return name, ok
}

// StartNode starts a new container. It is materialized in the output only
// when its first child is written, or when it is finished.
// Root containers don't have a name: a name set before them is discarded.
func (e *Encoder) StartNode() error {
	if e.err != nil {
		return e.err
	}

	if e.top().kind == Root {
		e.takeName()
	} else {
		if err := e.WriteName(); err != nil {
			return err
		}
	}

	e.stack = append(e.stack, encoderFrame{kind: StartObject})
	return nil
}

// FinishNode closes the innermost container. Containers without children are
// opened and closed immediately. If the container is a root container, the
// complete document is written to the underlying writer.
func (e *Encoder) FinishNode() error {
	if e.err != nil {
		return e.err
	}

	depth := len(e.stack)

	var err error
	switch e.top().kind {
	case Root:
		return e.fail(structuref("no container to finish"))
	case StartArray:
		err = e.builder.OpenArray()
		if err == nil {
			err = e.builder.CloseArray()
		}
	case InArray:
		err = e.builder.CloseArray()
	case StartObject:
		if depth > 2 {
			err = e.builder.OpenDocument()
			if err == nil {
				err = e.builder.CloseDocument()
			}
		}
	case InObject:
		if depth > 2 {
			err = e.builder.CloseDocument()
		}
	}
	if err != nil {
		return e.fail(asStructure(err))
	}

	e.stack = e.stack[:depth-1]

	if e.top().kind == Root {
		return e.flush()
	}

	return nil
}

// flush writes the finished root document to w in a single call and resets the builder.
func (e *Encoder) flush() error {
	doc, err := e.builder.Document()
	if err != nil {
		return e.fail(asStructure(err))
	}

	_, err = e.w.Write(doc)
	if err != nil {
		return e.fail(errors.Wrap(err, "failed to write document"))
	}

	e.builder.Reset()
	return nil
}

// WriteName prepares the innermost container for a new child: the container
// is materialized if it wasn't already, and the key of the child is written.
// Array elements have no name; object elements are keyed by the name set
// with SetNextName, or by a generated positional name.
// It must be called before every scalar save.
func (e *Encoder) WriteName() error {
	if e.err != nil {
		return e.err
	}

	f := e.top()

	switch f.kind {
	case Root:
		return e.fail(structuref("values saved outside of a container are not supported"))
	case StartArray:
		if err := e.builder.OpenArray(); err != nil {
			return e.fail(asStructure(err))
		}
		f.kind = InArray
	case StartObject:
		f.kind = InObject
		if len(e.stack) > 2 {
			if err := e.builder.OpenDocument(); err != nil {
				return e.fail(asStructure(err))
			}
		}
	}

	if f.kind == InArray {
		e.takeName()
		return nil
	}

	name, ok := e.takeName()
	if !ok {
		name = e.opts.NamePrefix + strconv.FormatUint(uint64(f.names), 10)
		f.names++
	}
	e.builder.Key(name)

	return nil
}

// MakeArray turns the innermost container into an array.
// It must be called before the container's first child is written.
// Root containers cannot be arrays.
func (e *Encoder) MakeArray() error {
	if e.err != nil {
		return e.err
	}

	f := e.top()
	switch f.kind {
	case StartObject:
		if len(e.stack) <= 2 {
			return e.fail(structuref("root containers cannot be arrays"))
		}
		f.kind = StartArray
	case StartArray:
	default:
		return e.fail(structuref("cannot turn a %s container into an array", f.kind))
	}

	return nil
}

func (e *Encoder) save(err error) error {
	if err != nil {
		return e.fail(asStructure(err))
	}
	return nil
}

// SaveBool saves a boolean.
func (e *Encoder) SaveBool(b bool) error {
	if e.err != nil {
		return e.err
	}
	return e.save(e.builder.AppendBoolean(b))
}

// SaveInt32 saves a 32-bit integer.
func (e *Encoder) SaveInt32(i int32) error {
	if e.err != nil {
		return e.err
	}
	return e.save(e.builder.AppendInt32(i))
}

// SaveInt64 saves a 64-bit integer.
func (e *Encoder) SaveInt64(i int64) error {
	if e.err != nil {
		return e.err
	}
	return e.save(e.builder.AppendInt64(i))
}

// SaveDouble saves a 64-bit floating point number.
func (e *Encoder) SaveDouble(f float64) error {
	if e.err != nil {
		return e.err
	}
	return e.save(e.builder.AppendDouble(f))
}

// SaveString saves a UTF-8 string.
func (e *Encoder) SaveString(s string) error {
	if e.err != nil {
		return e.err
	}
	return e.save(e.builder.AppendString(s))
}

// SaveTime saves t as a BSON datetime, with millisecond precision.
func (e *Encoder) SaveTime(t time.Time) error {
	if e.err != nil {
		return e.err
	}
	return e.save(e.builder.AppendDateTime(t))
}

// SaveBinary saves a binary blob.
func (e *Encoder) SaveBinary(subtype byte, data []byte) error {
	if e.err != nil {
		return e.err
	}
	return e.save(e.builder.AppendBinary(subtype, data))
}

// SaveObjectID saves an ObjectId.
func (e *Encoder) SaveObjectID(oid primitive.ObjectID) error {
	if e.err != nil {
		return e.err
	}
	return e.save(e.builder.AppendObjectID(oid))
}

// SaveNull saves a null value.
func (e *Encoder) SaveNull() error {
	if e.err != nil {
		return e.err
	}
	return e.save(e.builder.AppendNull())
}

// SaveRegex saves a regular expression.
func (e *Encoder) SaveRegex(pattern, options string) error {
	if e.err != nil {
		return e.err
	}
	return e.save(e.builder.AppendRegex(pattern, options))
}

// SaveTimestamp saves a BSON internal timestamp.
func (e *Encoder) SaveTimestamp(t, i uint32) error {
	if e.err != nil {
		return e.err
	}
	return e.save(e.builder.AppendTimestamp(t, i))
}
