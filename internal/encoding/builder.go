// Package encoding adapts the bsoncore primitives to the needs of the archives:
// an incremental document builder, typed views over parsed elements and the
// framing of back-to-back documents in a byte stream.
package encoding

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Errors returned by the builder.
var (
	// ErrMissingKey is returned when a value is appended to a document
	// without a key set beforehand.
	ErrMissingKey = errors.New("missing key")

	// ErrUnbalanced is returned when closing a container that was never opened,
	// closing a container of the wrong kind or finishing a document while
	// a nested container is still open.
	ErrUnbalanced = errors.New("unbalanced container")

	// ErrNullByte is returned when a key or a regular expression
	// contains a null byte, which BSON cannot represent.
	ErrNullByte = errors.New("string contains a null byte")
)

type frame struct {
	// offset of the length prefix of the container
	start int32
	array bool
	// number of elements, used to generate array keys
	n int
}

// Builder accumulates one BSON document. Nested documents and arrays are
// opened and closed explicitly, values are appended to the innermost one.
// Elements of an array are keyed by their position, elements of a document
// by the key set with Key.
type Builder struct {
	doc    []byte
	frames []frame
	key    string
	hasKey bool
}

// NewBuilder returns a builder ready to accept the fields of a document.
func NewBuilder() *Builder {
	var b Builder
	b.Reset()
	return &b
}

// Reset discards the content of the builder and starts a new document.
// The underlying buffer is reused.
func (b *Builder) Reset() {
	b.doc = b.doc[:0]
	b.frames = b.frames[:0]
	b.key, b.hasKey = "", false

	var idx int32
	idx, b.doc = bsoncore.AppendDocumentStart(b.doc)
	b.frames = append(b.frames, frame{start: idx})
}

// Depth returns the number of open containers, the top-level document included.
func (b *Builder) Depth() int {
	return len(b.frames)
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return len(b.doc)
}

// Key sets the key of the next element appended to a document.
// It is ignored inside arrays.
func (b *Builder) Key(k string) {
	b.key = k
	b.hasKey = true
}

func (b *Builder) top() *frame {
	return &b.frames[len(b.frames)-1]
}

func (b *Builder) header(t bsontype.Type) error {
	f := b.top()

	var key string
	if f.array {
		key = strconv.Itoa(f.n)
	} else {
		if !b.hasKey {
			return errors.Wrapf(ErrMissingKey, "cannot append %s", t)
		}
		key = b.key
		if strings.IndexByte(key, 0) >= 0 {
			return errors.Wrapf(ErrNullByte, "invalid key %q", key)
		}
	}

	f.n++
	b.key, b.hasKey = "", false
	b.doc = bsoncore.AppendHeader(b.doc, t, key)
	return nil
}

// OpenDocument starts an embedded document.
func (b *Builder) OpenDocument() error {
	err := b.header(bsontype.EmbeddedDocument)
	if err != nil {
		return err
	}

	var idx int32
	idx, b.doc = bsoncore.AppendDocumentStart(b.doc)
	b.frames = append(b.frames, frame{start: idx})
	return nil
}

// CloseDocument ends the innermost embedded document.
func (b *Builder) CloseDocument() error {
	if len(b.frames) < 2 || b.top().array {
		return errors.Wrap(ErrUnbalanced, "no embedded document to close")
	}

	return b.close()
}

// OpenArray starts an array.
func (b *Builder) OpenArray() error {
	err := b.header(bsontype.Array)
	if err != nil {
		return err
	}

	var idx int32
	idx, b.doc = bsoncore.AppendArrayStart(b.doc)
	b.frames = append(b.frames, frame{start: idx, array: true})
	return nil
}

// CloseArray ends the innermost array.
func (b *Builder) CloseArray() error {
	if len(b.frames) < 2 || !b.top().array {
		return errors.Wrap(ErrUnbalanced, "no array to close")
	}

	return b.close()
}

func (b *Builder) close() error {
	f := b.top()

	var err error
	if f.array {
		b.doc, err = bsoncore.AppendArrayEnd(b.doc, f.start)
	} else {
		b.doc, err = bsoncore.AppendDocumentEnd(b.doc, f.start)
	}
	if err != nil {
		return errors.WithStack(err)
	}

	b.frames = b.frames[:len(b.frames)-1]
	return nil
}

// Document finishes the top-level document and returns it.
// The returned slice is only valid until the next call to Reset.
func (b *Builder) Document() (bsoncore.Document, error) {
	if len(b.frames) != 1 {
		return nil, errors.Wrapf(ErrUnbalanced, "%d containers still open", len(b.frames)-1)
	}
	if b.hasKey {
		return nil, errors.Newf("dangling key %q", b.key)
	}

	err := b.close()
	if err != nil {
		return nil, err
	}

	return bsoncore.Document(b.doc), nil
}

// AppendDouble appends a 64-bit floating point number.
func (b *Builder) AppendDouble(f float64) error {
	if err := b.header(bsontype.Double); err != nil {
		return err
	}
	b.doc = bsoncore.AppendDouble(b.doc, f)
	return nil
}

// AppendString appends a UTF-8 string.
func (b *Builder) AppendString(s string) error {
	if err := b.header(bsontype.String); err != nil {
		return err
	}
	b.doc = bsoncore.AppendString(b.doc, s)
	return nil
}

// AppendBoolean appends a boolean.
func (b *Builder) AppendBoolean(x bool) error {
	if err := b.header(bsontype.Boolean); err != nil {
		return err
	}
	b.doc = bsoncore.AppendBoolean(b.doc, x)
	return nil
}

// AppendInt32 appends a 32-bit integer.
func (b *Builder) AppendInt32(i int32) error {
	if err := b.header(bsontype.Int32); err != nil {
		return err
	}
	b.doc = bsoncore.AppendInt32(b.doc, i)
	return nil
}

// AppendInt64 appends a 64-bit integer.
func (b *Builder) AppendInt64(i int64) error {
	if err := b.header(bsontype.Int64); err != nil {
		return err
	}
	b.doc = bsoncore.AppendInt64(b.doc, i)
	return nil
}

// AppendDateTime appends a UTC datetime. BSON datetimes have a millisecond
// precision, the rest is truncated.
func (b *Builder) AppendDateTime(t time.Time) error {
	if err := b.header(bsontype.DateTime); err != nil {
		return err
	}
	b.doc = bsoncore.AppendDateTime(b.doc, t.UnixMilli())
	return nil
}

// AppendBinary appends a binary blob with the given subtype.
func (b *Builder) AppendBinary(subtype byte, data []byte) error {
	if err := b.header(bsontype.Binary); err != nil {
		return err
	}
	b.doc = bsoncore.AppendBinary(b.doc, subtype, data)
	return nil
}

// AppendObjectID appends an ObjectId.
func (b *Builder) AppendObjectID(oid primitive.ObjectID) error {
	if err := b.header(bsontype.ObjectID); err != nil {
		return err
	}
	b.doc = bsoncore.AppendObjectID(b.doc, oid)
	return nil
}

// AppendNull appends a null element. It has no payload.
func (b *Builder) AppendNull() error {
	return b.header(bsontype.Null)
}

// AppendRegex appends a regular expression.
func (b *Builder) AppendRegex(pattern, options string) error {
	if strings.IndexByte(pattern, 0) >= 0 || strings.IndexByte(options, 0) >= 0 {
		return errors.Wrapf(ErrNullByte, "invalid regular expression %q/%q", pattern, options)
	}
	if err := b.header(bsontype.Regex); err != nil {
		return err
	}
	b.doc = bsoncore.AppendRegex(b.doc, pattern, options)
	return nil
}

// AppendTimestamp appends a BSON internal timestamp.
func (b *Builder) AppendTimestamp(t, i uint32) error {
	if err := b.header(bsontype.Timestamp); err != nil {
		return err
	}
	b.doc = bsoncore.AppendTimestamp(b.doc, t, i)
	return nil
}
