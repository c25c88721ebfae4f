package walk

import (
	"reflect"
	"time"

	"github.com/chaisql/bsonarchive/archive"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Save writes v to out as one root document.
// Documents are saved as is, any other value is saved as the single
// field of a document. v cannot be nil.
func Save(out archive.Output, v any) error {
	ref := reflect.ValueOf(v)
	if !ref.IsValid() || isNilPtr(ref) {
		return errors.New("cannot save a nil value")
	}

	if isDocument(ref.Type()) {
		return saveValue(out, ref)
	}

	err := out.StartNode()
	if err != nil {
		return err
	}

	err = saveValue(out, ref)
	if err != nil {
		return err
	}

	return out.FinishNode()
}

// SaveValue writes v to out as a child of the current container.
// It is meant to be used by Saver implementations.
func SaveValue(out archive.Output, v any) error {
	ref := reflect.ValueOf(v)
	if !ref.IsValid() {
		if err := out.WriteName(); err != nil {
			return err
		}
		return out.SaveNull()
	}

	return saveValue(out, ref)
}

func isNilPtr(ref reflect.Value) bool {
	return ref.Kind() == reflect.Ptr && ref.IsNil()
}

func saveValue(out archive.Output, ref reflect.Value) error {
	t := ref.Type()

	if t.Implements(saverType) && !isNilPtr(ref) {
		return ref.Interface().(Saver).SaveArchive(out)
	}
	if ref.CanAddr() && reflect.PointerTo(t).Implements(saverType) {
		return ref.Addr().Interface().(Saver).SaveArchive(out)
	}

	switch t {
	case timeType:
		return saveScalar(out, func() error { return out.SaveTime(ref.Interface().(time.Time)) })
	case oidType:
		return saveScalar(out, func() error { return out.SaveObjectID(ref.Interface().(primitive.ObjectID)) })
	case regexType:
		re := ref.Interface().(primitive.Regex)
		return saveScalar(out, func() error { return out.SaveRegex(re.Pattern, re.Options) })
	case timestampType:
		ts := ref.Interface().(primitive.Timestamp)
		return saveScalar(out, func() error { return out.SaveTimestamp(ts.T, ts.I) })
	case binaryType:
		bin := ref.Interface().(primitive.Binary)
		return saveScalar(out, func() error { return out.SaveBinary(bin.Subtype, bin.Data) })
	}

	switch t.Kind() {
	case reflect.Ptr, reflect.Interface:
		if ref.IsNil() {
			return saveScalar(out, out.SaveNull)
		}
		return saveValue(out, ref.Elem())
	case reflect.Bool:
		return saveScalar(out, func() error { return out.SaveBool(ref.Bool()) })
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return saveScalar(out, func() error { return out.SaveInt32(int32(ref.Int())) })
	case reflect.Int, reflect.Int64:
		return saveScalar(out, func() error { return out.SaveInt64(ref.Int()) })
	case reflect.Uint8, reflect.Uint16:
		return saveScalar(out, func() error { return out.SaveInt32(int32(ref.Uint())) })
	case reflect.Uint32, reflect.Uint, reflect.Uint64:
		i, err := toInt64(ref.Uint())
		if err != nil {
			return err
		}
		return saveScalar(out, func() error { return out.SaveInt64(i) })
	case reflect.Float32, reflect.Float64:
		return saveScalar(out, func() error { return out.SaveDouble(ref.Float()) })
	case reflect.String:
		return saveScalar(out, func() error { return out.SaveString(ref.String()) })
	case reflect.Slice:
		if ref.IsNil() {
			return saveScalar(out, out.SaveNull)
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return saveScalar(out, func() error { return out.SaveBinary(bsonBinaryGeneric, ref.Bytes()) })
		}
		return saveSequence(out, ref)
	case reflect.Array:
		return saveSequence(out, ref)
	case reflect.Struct:
		return saveStruct(out, ref)
	case reflect.Map:
		return saveMap(out, ref)
	}

	return newErrUnsupportedType(t, "")
}

// generic binary subtype
const bsonBinaryGeneric = 0x00

func saveScalar(out archive.Output, save func() error) error {
	err := out.WriteName()
	if err != nil {
		return err
	}

	return save()
}

func saveSequence(out archive.Output, ref reflect.Value) error {
	err := out.StartNode()
	if err != nil {
		return err
	}

	err = out.MakeArray()
	if err != nil {
		return err
	}

	for i := 0; i < ref.Len(); i++ {
		err = saveValue(out, ref.Index(i))
		if err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
	}

	return out.FinishNode()
}

func saveStruct(out archive.Output, ref reflect.Value) error {
	err := out.StartNode()
	if err != nil {
		return err
	}

	for _, f := range fieldsOf(ref.Type()) {
		out.SetNextName(f.name)

		err = saveValue(out, ref.FieldByIndex(f.index))
		if err != nil {
			return errors.Wrapf(err, "field %q", f.name)
		}
	}

	return out.FinishNode()
}

// saveMap saves a map with string keys as a document, keys sorted.
func saveMap(out archive.Output, ref reflect.Value) error {
	if ref.Type().Key().Kind() != reflect.String {
		return newErrUnsupportedType(ref.Type(), "map keys must be strings")
	}

	keys := make([]string, 0, ref.Len())
	iter := ref.MapRange()
	for iter.Next() {
		keys = append(keys, iter.Key().String())
	}
	slices.Sort(keys)

	err := out.StartNode()
	if err != nil {
		return err
	}

	for _, k := range keys {
		out.SetNextName(k)

		err = saveValue(out, ref.MapIndex(reflect.ValueOf(k).Convert(ref.Type().Key())))
		if err != nil {
			return errors.Wrapf(err, "key %q", k)
		}
	}

	return out.FinishNode()
}

// toInt64 converts x to an int64, failing if it doesn't fit.
func toInt64[T constraints.Integer](x T) (int64, error) {
	i := int64(x)
	if T(i) != x || (x < 0) != (i < 0) {
		return 0, errors.Wrapf(ErrOverflow, "%d doesn't fit in a 64-bit integer", x)
	}

	return i, nil
}
