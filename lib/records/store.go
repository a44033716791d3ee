package records

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-set/v2"
	"github.com/pkg/errors"
)

// Store is an append-only record store: one gzip JSON-lines file per
// collection, each record keyed by a stable identifier. Every Put appends a
// complete gzip member, so a crashed run never corrupts records already
// written. Records are never rewritten; a rerun supersedes by appending.
type Store struct {
	mutex sync.Mutex
	dir   string
	keys  map[string]*set.Set[string]
}

type envelope struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

func NewStore(dir string) (*Store, error) {
	err := os.MkdirAll(dir, 0o700)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating record store at %v", dir)
	}

	return &Store{
		dir:  dir,
		keys: map[string]*set.Set[string]{},
	}, nil
}

func (s *Store) Put(collection string, key string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, "error encoding record %v", key)
	}

	line, err := json.Marshal(envelope{Key: key, Data: data})
	if err != nil {
		return errors.Wrapf(err, "error encoding record %v", key)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	keys, err := s.loadKeys(collection)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(s.path(collection), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return errors.Wrapf(err, "error opening collection %v", collection)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)

	_, err = zw.Write(append(line, '\n'))
	if err != nil {
		return errors.Wrapf(err, "error writing record %v", key)
	}

	err = zw.Close()
	if err != nil {
		return errors.Wrapf(err, "error writing record %v", key)
	}

	keys.Insert(key)
	return nil
}

// Iter visits all records of a collection in insertion order.
func (s *Store) Iter(collection string, visit func(key string, data json.RawMessage) error) error {
	file, err := os.Open(s.path(collection))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "error opening collection %v", collection)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return errors.Wrapf(err, "error reading collection %v", collection)
	}
	defer zr.Close()

	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		var e envelope
		err = json.Unmarshal(scanner.Bytes(), &e)
		if err != nil {
			return errors.Wrapf(err, "error decoding record in %v", collection)
		}

		err = visit(e.Key, e.Data)
		if err != nil {
			return err
		}
	}

	return scanner.Err()
}

func (s *Store) Exists(collection string, key string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	keys, err := s.loadKeys(collection)
	if err != nil {
		return false, err
	}

	return keys.Contains(key), nil
}

func (s *Store) Count(collection string) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	keys, err := s.loadKeys(collection)
	if err != nil {
		return 0, err
	}

	return keys.Size(), nil
}

// loadKeys scans the collection once and caches the key set. Callers must
// hold the mutex.
func (s *Store) loadKeys(collection string) (*set.Set[string], error) {
	keys, ok := s.keys[collection]
	if ok {
		return keys, nil
	}

	keys = set.New[string](1000)

	file, err := os.Open(s.path(collection))
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "error opening collection %v", collection)
	}

	if err == nil {
		defer file.Close()

		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading collection %v", collection)
		}

		scanner := bufio.NewScanner(zr)
		scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
		for scanner.Scan() {
			var e envelope
			err = json.Unmarshal(scanner.Bytes(), &e)
			if err != nil {
				return nil, errors.Wrapf(err, "error decoding record in %v", collection)
			}
			keys.Insert(e.Key)
		}

		err = scanner.Err()
		if err != nil && err != io.EOF {
			return nil, errors.Wrapf(err, "error reading collection %v", collection)
		}
	}

	s.keys[collection] = keys
	return keys, nil
}

func (s *Store) path(collection string) string {
	return filepath.Join(s.dir, collection+".json.gz")
}
