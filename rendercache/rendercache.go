// Package rendercache keeps rendered surfaces in an on-disk key-value store so
// that an unchanged scene is not rendered twice.
package rendercache

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"whitted/surface"

	"github.com/dgraph-io/badger"
	"github.com/golang/glog"
	"golang.org/x/xerrors"
)

// Key prefixes that denote different tables in the key-value store.
const (
	KeyTypeSurface uint32 = 0
)

// ErrNotFound is wrapped by the error Get returns on a cache miss.
var ErrNotFound = errors.New("not found")

// SurfaceKey identifies the surface rendered from a scene file through one of
// its cameras by one renderer at one sample count.  Worker counts do not
// change the output and are not part of the key.
func SurfaceKey(sceneData []byte, cameraName, rendererName string, samples int) []byte {
	h := sha256.New()

	writeField := func(b []byte) {
		lengthBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(lengthBytes, uint64(len(b)))
		h.Write(lengthBytes)
		h.Write(b)
	}
	writeField(sceneData)
	writeField([]byte(cameraName))
	writeField([]byte(rendererName))

	samplesBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(samplesBytes, uint64(samples))
	writeField(samplesBytes)

	key := make([]byte, 4, 4+sha256.Size)
	binary.BigEndian.PutUint32(key[0:4], KeyTypeSurface)
	return h.Sum(key)
}

type Error struct {
	Message string

	inner error
	frame xerrors.Frame
}

func NewError(message string, inner error) *Error {
	return &Error{
		Message: message,
		inner:   inner,
		frame:   xerrors.Caller(1),
	}
}

func (e *Error) Error() string {
	if e.inner == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.inner)
}

func (e *Error) Format(f fmt.State, c rune) { // implements fmt.Formatter
	xerrors.FormatError(e, f, c)
}

func (e *Error) FormatError(p xerrors.Printer) error { // implements xerrors.Formatter
	p.Print(e.Message)
	if p.Detail() {
		e.frame.Format(p)
	}
	return e.inner
}

func (e *Error) Unwrap() error {
	return e.inner
}

// glogLogger routes badger's logging through glog.
type glogLogger struct{}

func (glogLogger) Errorf(format string, args ...interface{}) {
	glog.Errorf(format, args...)
}

func (glogLogger) Warningf(format string, args ...interface{}) {
	glog.Warningf(format, args...)
}

func (glogLogger) Infof(format string, args ...interface{}) {
	glog.V(1).Infof(format, args...)
}

func (glogLogger) Debugf(format string, args ...interface{}) {
	glog.V(2).Infof(format, args...)
}

type Cache struct {
	DB *badger.DB
}

// Open opens the cache in dir, creating it if it does not exist.
func Open(dir string) (*Cache, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(glogLogger{}))
	if err != nil {
		return nil, xerrors.Errorf("while opening badger kv dir: %w", err)
	}
	return &Cache{DB: db}, nil
}

func (c *Cache) Close() error {
	if err := c.DB.Close(); err != nil {
		return xerrors.Errorf("while closing database: %w", err)
	}
	return nil
}

// Get returns the surface stored under key.  A miss is an *Error wrapping
// ErrNotFound.
func (c *Cache) Get(key []byte) (*surface.Surface, error) {
	var value []byte
	err := c.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if xerrors.Is(err, badger.ErrKeyNotFound) {
			return NewError(fmt.Sprintf("no surface cached under %x", key), ErrNotFound)
		} else if err != nil {
			return NewError("while reading surface", err)
		}

		value, err = item.ValueCopy(nil)
		if err != nil {
			return NewError("while copying surface value", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s, err := surface.Read(bytes.NewReader(value))
	if err != nil {
		return nil, NewError(fmt.Sprintf("while decoding surface cached under %x", key), err)
	}

	glog.V(2).Infof("Cache hit for %x", key)
	return s, nil
}

// Put stores s under key, replacing any previous surface.
func (c *Cache) Put(key []byte, s *surface.Surface) error {
	buf := &bytes.Buffer{}
	if err := surface.Write(s, buf); err != nil {
		return NewError("while encoding surface", err)
	}

	for {
		err := c.DB.Update(func(txn *badger.Txn) error {
			return txn.Set(key, buf.Bytes())
		})
		if xerrors.Is(err, badger.ErrConflict) {
			continue
		} else if err != nil {
			return NewError("while storing surface", err)
		}
		return nil
	}
}
