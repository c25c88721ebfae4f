package archive

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Output is the saving side of the traversal protocol, implemented by Encoder.
//
// For every value, a driver calls SetNextName if the value is named, then
// either StartNode, the children and FinishNode for a container, or WriteName
// followed by one of the Save methods for a scalar. Sequences call MakeArray
// right after StartNode.
type Output interface {
	SetNextName(name string)
	StartNode() error
	FinishNode() error
	WriteName() error
	MakeArray() error

	SaveBool(b bool) error
	SaveInt32(i int32) error
	SaveInt64(i int64) error
	SaveDouble(f float64) error
	SaveString(s string) error
	SaveTime(t time.Time) error
	SaveBinary(subtype byte, data []byte) error
	SaveObjectID(oid primitive.ObjectID) error
	SaveNull() error
	SaveRegex(pattern, options string) error
	SaveTimestamp(t, i uint32) error
}

// Input is the loading side of the traversal protocol, implemented by Decoder.
//
// A driver issues the same sequence of calls as when saving, except that
// scalars are read with one of the Load methods without any prologue and
// sequences call LoadSize right after StartNode. IsNull peeks at the next
// value without consuming it, so that optional values can be told apart
// before choosing which Load method to call.
type Input interface {
	SetNextName(name string)
	StartNode() error
	FinishNode() error
	LoadSize() (int, error)
	IsNull() (bool, error)

	LoadBool() (bool, error)
	LoadInt32() (int32, error)
	LoadInt64() (int64, error)
	LoadDouble() (float64, error)
	LoadString() (string, error)
	LoadTime() (time.Time, error)
	LoadBinary() (byte, []byte, error)
	LoadObjectID() (primitive.ObjectID, error)
	LoadNull() error
	LoadRegex() (string, string, error)
	LoadTimestamp() (uint32, uint32, error)
}

var (
	_ Output = (*Encoder)(nil)
	_ Input  = (*Decoder)(nil)
)
