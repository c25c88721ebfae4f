package walk_test

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/chaisql/bsonarchive/archive"
	"github.com/chaisql/bsonarchive/walk"
	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

type Base struct {
	ID      int64
	Created time.Time
}

type Point struct {
	X, Y float64
}

type Record struct {
	Base
	Name    string `bson:"n"`
	Skipped string `bson:"-"`
	Age     uint8
	Score   int32
	Big     uint64
	Small   int8
	Active  bool
	Tags    []string
	Matrix  [][]int
	Pair    [2]int16
	Blob    []byte
	Origin  *Point
	Missing *Point
	Points  []Point
	Empty   []int
	Nothing []string
	NoBlob  []byte
	Nested  struct {
		Level int
	}
	OID   primitive.ObjectID
	Regex primitive.Regex
	TS    primitive.Timestamp
	Bin   primitive.Binary

	private int
}

func roundTrip[T any](t *testing.T, in T) T {
	t.Helper()

	var buf bytes.Buffer
	enc := archive.NewEncoder(&buf, nil)
	require.NoError(t, walk.Save(enc, in))
	require.NoError(t, bsoncore.Document(buf.Bytes()).Validate())

	dec, err := archive.NewDecoder(&buf, nil)
	require.NoError(t, err)
	require.Equal(t, 1, dec.Len())

	var out T
	require.NoError(t, walk.Load(dec, &out))
	require.False(t, dec.More())
	return out
}

func TestRoundTripStruct(t *testing.T) {
	r := Record{
		Base:    Base{ID: 10, Created: time.Date(2020, 1, 2, 3, 4, 5, 6_000_000, time.UTC)},
		Name:    "foo",
		Skipped: "bar",
		Age:     42,
		Score:   -7,
		Big:     math.MaxInt64,
		Small:   -128,
		Active:  true,
		Tags:    []string{"a", "b"},
		Matrix:  [][]int{{1, 2}, {}, {3}},
		Pair:    [2]int16{-1, 1},
		Blob:    []byte("blob"),
		Origin:  &Point{1.5, -2.5},
		Points:  []Point{{1, 2}, {3, 4}},
		Empty:   []int{},
		OID:     primitive.NewObjectID(),
		Regex:   primitive.Regex{Pattern: "^a", Options: "i"},
		TS:      primitive.Timestamp{T: 1, I: 2},
		Bin:     primitive.Binary{Subtype: 0x80, Data: []byte{9}},
		private: 3,
	}
	r.Nested.Level = 5

	got := roundTrip(t, r)

	want := r
	want.Skipped = ""
	want.private = 0
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(Record{})); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLayout(t *testing.T) {
	type Inner struct {
		V int32
	}
	type Outer struct {
		Inner
		Name string `bson:"n"`
		List []int32
		None []int32
		Ptr  *Inner
	}

	var buf bytes.Buffer
	enc := archive.NewEncoder(&buf, nil)
	require.NoError(t, walk.Save(enc, &Outer{Inner: Inner{V: 1}, Name: "x", List: []int32{1, 2}}))

	want := bsoncore.NewDocumentBuilder().
		AppendInt32("v", 1).
		AppendString("n", "x").
		AppendArray("list", bsoncore.NewArrayBuilder().AppendInt32(1).AppendInt32(2).Build()).
		AppendNull("none").
		AppendNull("ptr").
		Build()
	require.Equal(t, []byte(want), buf.Bytes())
}

func TestRoundTripScalarsAtRoot(t *testing.T) {
	require.Equal(t, int32(5), roundTrip(t, int32(5)))
	require.Equal(t, "hello", roundTrip(t, "hello"))
	require.Equal(t, []float64{1, 2.5}, roundTrip(t, []float64{1, 2.5}))
	require.Equal(t, [][]string{{"a"}, {}}, roundTrip(t, [][]string{{"a"}, {}}))
	require.Equal(t, [][]string{nil, {}}, roundTrip(t, [][]string{nil, {}}))
	require.Nil(t, roundTrip(t, []int(nil)))

	p := roundTrip(t, &Point{X: 1})
	require.Equal(t, &Point{X: 1}, p)
}

func TestScalarRootIsWrapped(t *testing.T) {
	var buf bytes.Buffer
	enc := archive.NewEncoder(&buf, nil)
	require.NoError(t, walk.Save(enc, true))

	want := bsoncore.NewDocumentBuilder().AppendBoolean("value0", true).Build()
	require.Equal(t, []byte(want), buf.Bytes())
}

func TestMultipleRoots(t *testing.T) {
	var buf bytes.Buffer
	enc := archive.NewEncoder(&buf, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, walk.Save(enc, Point{X: float64(i)}))
	}

	dec, err := archive.NewDecoder(&buf, nil)
	require.NoError(t, err)

	var got []Point
	for dec.More() {
		var p Point
		require.NoError(t, walk.Load(dec, &p))
		got = append(got, p)
	}
	require.Equal(t, []Point{{X: 0}, {X: 1}, {X: 2}}, got)
}

func TestSaveMap(t *testing.T) {
	var buf bytes.Buffer
	enc := archive.NewEncoder(&buf, nil)
	require.NoError(t, walk.Save(enc, map[string]any{
		"b": 2,
		"a": "x",
		"c": map[string]bool{"z": true},
		"d": nil,
	}))

	want := bsoncore.NewDocumentBuilder().
		AppendString("a", "x").
		AppendInt64("b", 2).
		AppendDocument("c", bsoncore.NewDocumentBuilder().AppendBoolean("z", true).Build()).
		AppendNull("d").
		Build()
	require.Equal(t, []byte(want), buf.Bytes())

	// maps are loaded through structs
	dec, err := archive.NewDecoder(&buf, nil)
	require.NoError(t, err)
	var s struct {
		A string
		B int
	}
	require.NoError(t, walk.Load(dec, &s))
	require.Equal(t, "x", s.A)
	require.Equal(t, 2, s.B)
}

type version struct {
	major, minor int
}

func (v version) SaveArchive(out archive.Output) error {
	if err := out.StartNode(); err != nil {
		return err
	}
	if err := out.MakeArray(); err != nil {
		return err
	}
	for _, n := range []int{v.major, v.minor} {
		if err := walk.SaveValue(out, n); err != nil {
			return err
		}
	}
	return out.FinishNode()
}

func (v *version) LoadArchive(in archive.Input) error {
	if err := in.StartNode(); err != nil {
		return err
	}
	n, err := in.LoadSize()
	if err != nil {
		return err
	}
	if n != 2 {
		return errors.Newf("expected 2 elements, got %d", n)
	}
	if err := walk.LoadValue(in, &v.major); err != nil {
		return err
	}
	if err := walk.LoadValue(in, &v.minor); err != nil {
		return err
	}
	return in.FinishNode()
}

func TestSaverLoader(t *testing.T) {
	type Release struct {
		Name    string
		Version version
		Prev    *version
	}

	in := Release{Name: "r", Version: version{1, 2}, Prev: &version{1, 1}}
	got := roundTrip(t, in)
	require.Equal(t, in, got)

	var buf bytes.Buffer
	enc := archive.NewEncoder(&buf, nil)
	require.NoError(t, walk.Save(enc, in))

	want := bsoncore.NewDocumentBuilder().
		AppendString("name", "r").
		AppendArray("version", bsoncore.NewArrayBuilder().AppendInt64(1).AppendInt64(2).Build()).
		AppendArray("prev", bsoncore.NewArrayBuilder().AppendInt64(1).AppendInt64(1).Build()).
		Build()
	require.Equal(t, []byte(want), buf.Bytes())
}

func TestErrors(t *testing.T) {
	t.Run("unsupported", func(t *testing.T) {
		var buf bytes.Buffer
		enc := archive.NewEncoder(&buf, nil)
		err := walk.Save(enc, struct{ C chan int }{})

		var e *walk.ErrUnsupportedType
		require.True(t, errors.As(err, &e))
	})

	t.Run("non string map keys", func(t *testing.T) {
		var buf bytes.Buffer
		enc := archive.NewEncoder(&buf, nil)
		err := walk.Save(enc, struct{ M map[int]int }{M: map[int]int{1: 1}})

		var e *walk.ErrUnsupportedType
		require.True(t, errors.As(err, &e))
	})

	t.Run("unsigned overflow", func(t *testing.T) {
		var buf bytes.Buffer
		enc := archive.NewEncoder(&buf, nil)
		err := walk.Save(enc, struct{ U uint64 }{U: math.MaxUint64})
		require.ErrorIs(t, err, walk.ErrOverflow)
	})

	t.Run("nil root", func(t *testing.T) {
		var buf bytes.Buffer
		enc := archive.NewEncoder(&buf, nil)

		var p *Point
		require.Error(t, walk.Save(enc, p))
		require.Error(t, walk.Save(enc, nil))
		require.Empty(t, buf.Bytes())
	})

	t.Run("narrowing overflow", func(t *testing.T) {
		var buf bytes.Buffer
		enc := archive.NewEncoder(&buf, nil)
		require.NoError(t, walk.Save(enc, struct{ V int32 }{V: 300}))

		dec, err := archive.NewDecoder(&buf, nil)
		require.NoError(t, err)

		var s struct{ V int8 }
		require.ErrorIs(t, walk.Load(dec, &s), walk.ErrOverflow)
	})

	t.Run("integer width mismatch", func(t *testing.T) {
		var buf bytes.Buffer
		enc := archive.NewEncoder(&buf, nil)
		require.NoError(t, walk.Save(enc, struct{ V int }{V: 300}))

		dec, err := archive.NewDecoder(&buf, nil)
		require.NoError(t, err)

		var s struct{ V int8 }
		err = walk.Load(dec, &s)
		// int is saved as a 64-bit integer, int8 is loaded from a 32-bit one
		require.ErrorIs(t, err, archive.ErrTypeMismatch)
	})

	t.Run("negative unsigned", func(t *testing.T) {
		var buf bytes.Buffer
		enc := archive.NewEncoder(&buf, nil)
		require.NoError(t, walk.Save(enc, struct{ V int64 }{V: -1}))

		dec, err := archive.NewDecoder(&buf, nil)
		require.NoError(t, err)

		var s struct{ V uint32 }
		require.ErrorIs(t, walk.Load(dec, &s), walk.ErrOverflow)
	})

	t.Run("missing field", func(t *testing.T) {
		var buf bytes.Buffer
		enc := archive.NewEncoder(&buf, nil)
		require.NoError(t, walk.Save(enc, Point{}))

		dec, err := archive.NewDecoder(&buf, nil)
		require.NoError(t, err)

		var s struct{ Z float64 }
		require.ErrorIs(t, walk.Load(dec, &s), archive.ErrKeyNotFound)
	})

	t.Run("array length", func(t *testing.T) {
		var buf bytes.Buffer
		enc := archive.NewEncoder(&buf, nil)
		require.NoError(t, walk.Save(enc, []int{1, 2, 3}))

		dec, err := archive.NewDecoder(&buf, nil)
		require.NoError(t, err)

		var a [2]int
		require.ErrorIs(t, walk.Load(dec, &a), archive.ErrStructure)
	})

	t.Run("load map", func(t *testing.T) {
		var buf bytes.Buffer
		enc := archive.NewEncoder(&buf, nil)
		require.NoError(t, walk.Save(enc, map[string]int{"a": 1}))

		dec, err := archive.NewDecoder(&buf, nil)
		require.NoError(t, err)

		var m map[string]int
		var e *walk.ErrUnsupportedType
		require.True(t, errors.As(walk.Load(dec, &m), &e))
	})

	t.Run("null byte", func(t *testing.T) {
		tests := []struct {
			name string
			v    any
		}{
			{"map key", map[string]int{"a\x00b": 1}},
			{"tag", struct {
				V int `bson:"v\x00"`
			}{}},
			{"regex", struct{ R primitive.Regex }{R: primitive.Regex{Pattern: "a\x00"}}},
		}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				var buf bytes.Buffer
				enc := archive.NewEncoder(&buf, nil)
				require.ErrorIs(t, walk.Save(enc, test.v), archive.ErrStructure)
				require.Empty(t, buf.Bytes())
			})
		}
	})

	t.Run("bad target", func(t *testing.T) {
		dec, err := archive.NewDecoder(&bytes.Buffer{}, nil)
		require.NoError(t, err)

		var p Point
		require.Error(t, walk.Load(dec, p))
		require.Error(t, walk.Load(dec, nil))
	})
}
