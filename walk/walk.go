// Package walk drives an archive over Go values using reflection.
//
// Structs are saved as documents: by default, each field is named after the
// lowercased field name, which can be changed with the "bson" struct tag.
// A field tagged with "-" is skipped and the fields of embedded structs are
// flattened into the parent document.
// Slices and arrays are saved as arrays, except byte slices which are saved
// as binary values. Nil slices are saved as null and loaded back as nil,
// empty slices as empty arrays. Pointers and interfaces are saved as the
// value they point to, or as null if they are nil.
//
// Root values that are not documents are wrapped in a document containing
// a single unnamed field.
package walk

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/chaisql/bsonarchive/archive"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// A Saver saves itself to an archive. SaveArchive must save exactly one
// value: either a single scalar, preceded by a call to WriteName, or a
// container.
type Saver interface {
	SaveArchive(out archive.Output) error
}

// A Loader loads itself from an archive. LoadArchive must load exactly one
// value, the counterpart of what its SaveArchive method saved.
type Loader interface {
	LoadArchive(in archive.Input) error
}

// ErrUnsupportedType is returned when a value cannot be saved or loaded.
type ErrUnsupportedType struct {
	Type reflect.Type
	Msg  string
}

func newErrUnsupportedType(t reflect.Type, msg string) error {
	return errors.WithStack(&ErrUnsupportedType{
		Type: t,
		Msg:  msg,
	})
}

func (e *ErrUnsupportedType) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("unsupported type %s", e.Type)
	}
	return fmt.Sprintf("unsupported type %s. %s", e.Type, e.Msg)
}

// ErrOverflow is returned when an integer doesn't fit in the type
// it is saved as or loaded into.
var ErrOverflow = errors.New("integer overflow")

var (
	saverType     = reflect.TypeOf((*Saver)(nil)).Elem()
	loaderType    = reflect.TypeOf((*Loader)(nil)).Elem()
	timeType      = reflect.TypeOf(time.Time{})
	oidType       = reflect.TypeOf(primitive.ObjectID{})
	regexType     = reflect.TypeOf(primitive.Regex{})
	timestampType = reflect.TypeOf(primitive.Timestamp{})
	binaryType    = reflect.TypeOf(primitive.Binary{})
)

// isDocument reports whether values of type t are saved as documents,
// in which case they can be used as root values without being wrapped.
func isDocument(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t {
	case timeType, oidType, regexType, timestampType, binaryType:
		return false
	}

	switch t.Kind() {
	case reflect.Struct:
		return true
	case reflect.Map:
		return t.Key().Kind() == reflect.String
	}

	return false
}

type field struct {
	name  string
	index []int
}

var fieldCache sync.Map // map[reflect.Type][]field

// fieldsOf returns the archived fields of the struct type t, in declaration
// order, the fields of embedded structs taking the place of the struct.
func fieldsOf(t reflect.Type) []field {
	if fs, ok := fieldCache.Load(t); ok {
		return fs.([]field)
	}

	fs := collectFields(t, nil)
	fieldCache.Store(t, fs)
	return fs
}

func collectFields(t reflect.Type, parent []int) []field {
	var fields []field

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)

		tag, hasTag := sf.Tag.Lookup("bson")
		if tag == "-" {
			continue
		}

		index := make([]int, len(parent)+1)
		copy(index, parent)
		index[len(parent)] = i

		if sf.Anonymous && !hasTag && sf.Type.Kind() == reflect.Struct {
			fields = append(fields, collectFields(sf.Type, index)...)
			continue
		}

		if !sf.IsExported() {
			continue
		}

		name := strings.ToLower(sf.Name)
		if hasTag && tag != "" {
			name = tag
		}

		fields = append(fields, field{name: name, index: index})
	}

	return fields
}
