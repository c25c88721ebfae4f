// Package store persists archived documents in a Pebble database.
// Every root document is stored as one record, keyed by a sequence number,
// and records are replayed in insertion order.
package store

import (
	"bytes"
	"io"
	"sync"

	"github.com/chaisql/bsonarchive/internal/binarysort"
	"github.com/chaisql/bsonarchive/internal/encoding"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

const (
	separator    byte = 0x1F
	recordPrefix byte = 'r'
)

var (
	// ErrRecordNotFound is returned when the requested record doesn't exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidRecord is returned when a write doesn't hold exactly one valid document.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrClosed is returned when using a closed store.
	ErrClosed = errors.New("store is closed")
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return &[]byte{}
	},
}

// Options configure a store.
type Options struct {
	// InMemory opens the store on an in-memory file system.
	// The path is ignored.
	InMemory bool
	// Sync forces every write to be synced to disk before returning.
	Sync bool
	// MaxDocumentSize is the largest accepted record.
	// If zero, encoding.MaxDocumentSize is used.
	MaxDocumentSize int
	// Logger receives the store and Pebble logs.
	Logger *logrus.Entry
	// FS overrides the file system, mostly for tests.
	FS vfs.FS
}

// Store is a sequence of BSON documents backed by Pebble.
// It implements io.Writer, so it can be the sink of an archive encoder.
type Store struct {
	db     *pebble.DB
	wopts  *pebble.WriteOptions
	log    *logrus.Entry
	max    int
	seq    uint64
	closed bool
}

// Open the store located at path, creating it if needed.
func Open(path string, opts *Options) (*Store, error) {
	var o Options
	if opts != nil {
		o = *opts
	}

	if o.Logger == nil {
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	log := o.Logger.WithField("component", "store")

	popts := pebble.Options{
		FS:     o.FS,
		Logger: log,
	}
	if o.InMemory && popts.FS == nil {
		popts.FS = vfs.NewMem()
		path = ""
	}

	db, err := pebble.Open(path, &popts)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open store %q", path)
	}

	s := Store{
		db:    db,
		wopts: pebble.NoSync,
		log:   log,
		max:   o.MaxDocumentSize,
	}
	if o.Sync {
		s.wopts = pebble.Sync
	}
	if s.max <= 0 {
		s.max = encoding.MaxDocumentSize
	}

	s.seq, err = s.lastSeq()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"path":    path,
		"records": s.seq,
	}).Debug("store opened")

	return &s, nil
}

// build the key of a record in the form:
// recordPrefix + <sep> + big endian sequence number.
func buildKey(seq uint64) []byte {
	buf := bufferPool.Get().(*[]byte)
	if cap(*buf) < 10 {
		*buf = make([]byte, 0, 10)
	}
	key := (*buf)[:0]
	key = append(key, recordPrefix, separator)
	return binarysort.AppendUint64(key, seq)
}

func releaseKey(key []byte) {
	bufferPool.Put(&key)
}

func decodeKey(k []byte) (uint64, error) {
	if len(k) != 10 || k[0] != recordPrefix || k[1] != separator {
		return 0, errors.Errorf("unexpected key %x", k)
	}

	return binarysort.DecodeUint64(k[2:])
}

func (s *Store) iterOptions() *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: []byte{recordPrefix, separator},
		UpperBound: []byte{recordPrefix, separator + 1},
	}
}

// lastSeq returns the sequence number of the last record, 0 if the store is empty.
func (s *Store) lastSeq() (uint64, error) {
	it := s.db.NewIter(s.iterOptions())
	defer it.Close()

	if !it.Last() {
		return 0, it.Error()
	}

	return decodeKey(it.Key())
}

// Write stores p as a new record. p must hold exactly one valid document.
func (s *Store) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errors.WithStack(ErrClosed)
	}

	err := s.check(p)
	if err != nil {
		return 0, err
	}

	key := buildKey(s.seq + 1)
	defer releaseKey(key)

	err = s.db.Set(key, p, s.wopts)
	if err != nil {
		return 0, errors.Wrap(err, "cannot write record")
	}
	s.seq++

	s.log.WithFields(logrus.Fields{
		"seq":  s.seq,
		"size": len(p),
	}).Trace("record written")

	return len(p), nil
}

func (s *Store) check(p []byte) error {
	if len(p) > s.max {
		return errors.Wrapf(ErrInvalidRecord, "record of %d bytes exceeds the maximum of %d bytes", len(p), s.max)
	}

	length, _, ok := bsoncore.ReadLength(p)
	if !ok || int(length) != len(p) {
		return errors.Wrap(ErrInvalidRecord, "record must contain exactly one document")
	}

	err := bsoncore.Document(p).Validate()
	if err != nil {
		return errors.Wrap(ErrInvalidRecord, err.Error())
	}

	return nil
}

// Import reads all the documents of r and stores them atomically, in order.
// It returns the number of imported documents.
func (s *Store) Import(r io.Reader) (int, error) {
	if s.closed {
		return 0, errors.WithStack(ErrClosed)
	}

	docs, err := encoding.ReadDocuments(r, s.max, true)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidRecord, err.Error())
	}

	b := s.db.NewBatch()
	defer b.Close()

	for i, doc := range docs {
		key := buildKey(s.seq + uint64(i) + 1)
		err = b.Set(key, doc, nil)
		releaseKey(key)
		if err != nil {
			return 0, err
		}
	}

	err = b.Commit(s.wopts)
	if err != nil {
		return 0, errors.Wrap(err, "cannot commit import")
	}
	s.seq += uint64(len(docs))

	s.log.WithField("records", len(docs)).Info("documents imported")

	return len(docs), nil
}

// Get returns a copy of the record stored under seq.
// Records are numbered from 1.
func (s *Store) Get(seq uint64) (bsoncore.Document, error) {
	if s.closed {
		return nil, errors.WithStack(ErrClosed)
	}

	key := buildKey(seq)
	defer releaseKey(key)

	value, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, errors.Wrapf(ErrRecordNotFound, "record %d", seq)
		}

		return nil, err
	}

	cp := make([]byte, len(value))
	copy(cp, value)

	err = closer.Close()
	if err != nil {
		return nil, err
	}

	return bsoncore.Document(cp), nil
}

// Iterate calls fn for every record, in insertion order.
// The document is only valid during the call to fn.
// If fn returns an error, the iteration stops and the error is returned.
func (s *Store) Iterate(fn func(seq uint64, doc bsoncore.Document) error) error {
	if s.closed {
		return errors.WithStack(ErrClosed)
	}

	it := s.db.NewIter(s.iterOptions())
	defer it.Close()

	for it.First(); it.Valid(); it.Next() {
		seq, err := decodeKey(it.Key())
		if err != nil {
			return err
		}

		err = fn(seq, bsoncore.Document(it.Value()))
		if err != nil {
			return err
		}
	}

	return it.Error()
}

// Len returns the number of records.
func (s *Store) Len() (int, error) {
	var n int
	err := s.Iterate(func(uint64, bsoncore.Document) error {
		n++
		return nil
	})
	return n, err
}

// Export writes every record to w, in insertion order, and returns the
// number of written documents. The output is a valid archive stream.
func (s *Store) Export(w io.Writer) (int, error) {
	var n int
	err := s.Iterate(func(seq uint64, doc bsoncore.Document) error {
		_, err := w.Write(doc)
		if err != nil {
			return errors.Wrapf(err, "cannot export record %d", seq)
		}
		n++
		return nil
	})
	return n, err
}

// Reader returns a reader over the concatenation of all the records.
// It can be passed to an archive decoder.
func (s *Store) Reader() (io.Reader, error) {
	var buf bytes.Buffer
	_, err := s.Export(&buf)
	if err != nil {
		return nil, err
	}

	return &buf, nil
}

// Close the store and the underlying Pebble database.
// Closing twice returns ErrClosed.
func (s *Store) Close() error {
	if s.closed {
		return errors.WithStack(ErrClosed)
	}
	s.closed = true

	err := s.db.Close()
	if err != nil {
		return err
	}

	s.log.WithField("records", s.seq).Debug("store closed")
	return nil
}
