package walk

import (
	"reflect"

	"github.com/chaisql/bsonarchive/archive"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Load reads the next root document of in into v, which must be a non-nil
// pointer. It is the counterpart of Save: if the value pointed to by v is not
// a document, it is read from the single field of the root document.
func Load(in archive.Input, v any) error {
	ref := reflect.ValueOf(v)
	if !ref.IsValid() || ref.Kind() != reflect.Ptr || ref.IsNil() {
		return errors.New("target must be a non-nil pointer")
	}

	if isDocument(ref.Type().Elem()) {
		// root documents are never null
		elem := ref.Elem()
		for elem.Kind() == reflect.Ptr {
			if elem.IsNil() {
				elem.Set(reflect.New(elem.Type().Elem()))
			}
			elem = elem.Elem()
		}
		return loadValue(in, elem)
	}

	err := in.StartNode()
	if err != nil {
		return err
	}

	err = loadValue(in, ref.Elem())
	if err != nil {
		return err
	}

	return in.FinishNode()
}

// LoadValue reads the next child of the current container into v, which
// must be a non-nil pointer. It is meant to be used by Loader implementations.
func LoadValue(in archive.Input, v any) error {
	ref := reflect.ValueOf(v)
	if !ref.IsValid() || ref.Kind() != reflect.Ptr || ref.IsNil() {
		return errors.New("target must be a non-nil pointer")
	}

	return loadValue(in, ref.Elem())
}

// loadValue reads the next value into ref, which must be settable.
func loadValue(in archive.Input, ref reflect.Value) error {
	t := ref.Type()

	if t.Kind() != reflect.Ptr && reflect.PointerTo(t).Implements(loaderType) {
		return ref.Addr().Interface().(Loader).LoadArchive(in)
	}

	switch t {
	case timeType:
		tm, err := in.LoadTime()
		if err != nil {
			return err
		}
		ref.Set(reflect.ValueOf(tm))
		return nil
	case oidType:
		oid, err := in.LoadObjectID()
		if err != nil {
			return err
		}
		ref.Set(reflect.ValueOf(oid))
		return nil
	case regexType:
		pattern, options, err := in.LoadRegex()
		if err != nil {
			return err
		}
		ref.Set(reflect.ValueOf(primitive.Regex{Pattern: pattern, Options: options}))
		return nil
	case timestampType:
		ts, i, err := in.LoadTimestamp()
		if err != nil {
			return err
		}
		ref.Set(reflect.ValueOf(primitive.Timestamp{T: ts, I: i}))
		return nil
	case binaryType:
		subtype, data, err := in.LoadBinary()
		if err != nil {
			return err
		}
		ref.Set(reflect.ValueOf(primitive.Binary{Subtype: subtype, Data: data}))
		return nil
	}

	switch t.Kind() {
	case reflect.Ptr:
		return loadPtr(in, ref)
	case reflect.Bool:
		b, err := in.LoadBool()
		if err != nil {
			return err
		}
		ref.SetBool(b)
		return nil
	case reflect.Int8, reflect.Int16, reflect.Int32:
		i, err := in.LoadInt32()
		if err != nil {
			return err
		}
		return setInt(ref, int64(i))
	case reflect.Int, reflect.Int64:
		i, err := in.LoadInt64()
		if err != nil {
			return err
		}
		return setInt(ref, i)
	case reflect.Uint8, reflect.Uint16:
		i, err := in.LoadInt32()
		if err != nil {
			return err
		}
		return setUint(ref, int64(i))
	case reflect.Uint32, reflect.Uint, reflect.Uint64:
		i, err := in.LoadInt64()
		if err != nil {
			return err
		}
		return setUint(ref, i)
	case reflect.Float32, reflect.Float64:
		f, err := in.LoadDouble()
		if err != nil {
			return err
		}
		ref.SetFloat(f)
		return nil
	case reflect.String:
		s, err := in.LoadString()
		if err != nil {
			return err
		}
		ref.SetString(s)
		return nil
	case reflect.Slice:
		null, err := loadNull(in)
		if err != nil {
			return err
		}
		if null {
			ref.Set(reflect.Zero(t))
			return nil
		}
		if t.Elem().Kind() == reflect.Uint8 {
			_, data, err := in.LoadBinary()
			if err != nil {
				return err
			}
			ref.SetBytes(data)
			return nil
		}
		return loadSlice(in, ref)
	case reflect.Array:
		return loadArray(in, ref)
	case reflect.Struct:
		return loadStruct(in, ref)
	case reflect.Map:
		return newErrUnsupportedType(t, "maps can be saved but not loaded")
	}

	return newErrUnsupportedType(t, "")
}

// loadNull consumes the next value if it is null.
func loadNull(in archive.Input) (bool, error) {
	null, err := in.IsNull()
	if err != nil || !null {
		return false, err
	}

	return true, in.LoadNull()
}

// loadPtr sets ref to nil if the next value is null, otherwise it
// allocates ref if needed and loads the value it points to.
func loadPtr(in archive.Input, ref reflect.Value) error {
	null, err := loadNull(in)
	if err != nil {
		return err
	}

	if null {
		ref.Set(reflect.Zero(ref.Type()))
		return nil
	}

	if ref.IsNil() {
		ref.Set(reflect.New(ref.Type().Elem()))
	}

	return loadValue(in, ref.Elem())
}

func loadSlice(in archive.Input, ref reflect.Value) error {
	err := in.StartNode()
	if err != nil {
		return err
	}

	n, err := in.LoadSize()
	if err != nil {
		return err
	}

	s := reflect.MakeSlice(ref.Type(), n, n)
	for i := 0; i < n; i++ {
		err = loadValue(in, s.Index(i))
		if err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
	}
	ref.Set(s)

	return in.FinishNode()
}

func loadArray(in archive.Input, ref reflect.Value) error {
	err := in.StartNode()
	if err != nil {
		return err
	}

	n, err := in.LoadSize()
	if err != nil {
		return err
	}
	if n != ref.Len() {
		return errors.Wrapf(archive.ErrStructure, "cannot load an array of %d elements into %s", n, ref.Type())
	}

	for i := 0; i < n; i++ {
		err = loadValue(in, ref.Index(i))
		if err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
	}

	return in.FinishNode()
}

func loadStruct(in archive.Input, ref reflect.Value) error {
	err := in.StartNode()
	if err != nil {
		return err
	}

	for _, f := range fieldsOf(ref.Type()) {
		in.SetNextName(f.name)

		err = loadValue(in, ref.FieldByIndex(f.index))
		if err != nil {
			return errors.Wrapf(err, "field %q", f.name)
		}
	}

	return in.FinishNode()
}

func setInt(ref reflect.Value, i int64) error {
	if ref.OverflowInt(i) {
		return errors.Wrapf(ErrOverflow, "%d doesn't fit in %s", i, ref.Type())
	}

	ref.SetInt(i)
	return nil
}

func setUint(ref reflect.Value, i int64) error {
	if i < 0 || ref.OverflowUint(uint64(i)) {
		return errors.Wrapf(ErrOverflow, "%d doesn't fit in %s", i, ref.Type())
	}

	ref.SetUint(uint64(i))
	return nil
}
