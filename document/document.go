// Package document defines a dynamic tree of values that can be saved to an
// archive, built from BSON documents and converted from and to JSON.
package document

import (
	"github.com/cockroachdb/errors"
)

// ErrFieldNotFound is returned by Get when the field doesn't exist.
var ErrFieldNotFound = errors.New("field not found")

// FieldBuffer stores a group of fields in memory, in insertion order.
type FieldBuffer struct {
	fields []fieldValue
}

type fieldValue struct {
	Field string
	Value Value
}

// NewFieldBuffer creates a FieldBuffer.
func NewFieldBuffer() *FieldBuffer {
	return new(FieldBuffer)
}

// Add a field to the buffer.
func (fb *FieldBuffer) Add(field string, v Value) *FieldBuffer {
	fb.fields = append(fb.fields, fieldValue{field, v})
	return fb
}

// Set replaces the value of the first field with the given name,
// or adds it if it doesn't exist.
func (fb *FieldBuffer) Set(field string, v Value) {
	for i := range fb.fields {
		if fb.fields[i].Field == field {
			fb.fields[i].Value = v
			return
		}
	}

	fb.Add(field, v)
}

// Get returns the value of the first field with the given name.
func (fb *FieldBuffer) Get(field string) (Value, error) {
	for _, fv := range fb.fields {
		if fv.Field == field {
			return fv.Value, nil
		}
	}

	return Value{}, errors.Wrapf(ErrFieldNotFound, "field %q", field)
}

// Iterate goes through all the fields of the buffer, in order, and calls fn
// for each one of them. If fn returns an error, the iteration stops.
func (fb *FieldBuffer) Iterate(fn func(field string, v Value) error) error {
	for _, fv := range fb.fields {
		err := fn(fv.Field, fv.Value)
		if err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of fields.
func (fb *FieldBuffer) Len() int {
	return len(fb.fields)
}

// String returns the JSON representation of fb.
func (fb *FieldBuffer) String() string {
	data, err := fb.MarshalJSON()
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// Reset the buffer.
func (fb *FieldBuffer) Reset() {
	fb.fields = fb.fields[:0]
}

// ValueBuffer is an array of values.
type ValueBuffer []Value

// NewValueBuffer creates a ValueBuffer with the given values.
func NewValueBuffer(values ...Value) ValueBuffer {
	return ValueBuffer(values)
}

// Append a value to the buffer and return the new buffer.
func (vb ValueBuffer) Append(v Value) ValueBuffer {
	return append(vb, v)
}

// Len returns the number of values.
func (vb ValueBuffer) Len() int {
	return len(vb)
}
