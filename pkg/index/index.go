// Package index implements the indexed-attribute directory (§4.7's
// ReadIndexDir/CreateIndex/RemoveIndex/StatIndex/ReadQuery group):
// named secondary indexes over a single attribute, each entry mapping
// an indexed value to the (vnid, parentVnid, name) triple needed to
// answer a query.
package index

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sharewire/sharewire/internal/shareerr"
)

// Type identifies the on-disk type of the attribute an index is built
// over, mirroring the attribute type tags in §4.7 (ReadAttrib/
// WriteAttrib/StatAttrib).
type Type uint32

const (
	TypeString Type = iota + 1
	TypeInt32
	TypeInt64
)

// Entry is one indexed value, mapping to the vnode it describes.
type Entry struct {
	Key        string
	Vnid       uint64
	ParentVnid uint64
	Name       string
}

// Store is a per-share index directory backed by badger.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the badger database at dir for one share's
// index directory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func indexMetaKey(name string) []byte { return []byte("idx-meta:" + name) }
func entryKey(indexName, entryKey string) []byte {
	return []byte("idx-entry:" + indexName + ":" + entryKey)
}
func entryPrefix(indexName string) []byte {
	return []byte("idx-entry:" + indexName + ":")
}

type indexMeta struct {
	Type Type `json:"type"`
}

// CreateIndex defines a new named index over attributes of the given
// type. Returns shareerr.Exists if the name is already defined.
func (s *Store) CreateIndex(name string, typ Type) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(indexMetaKey(name)); err == nil {
			return shareerr.NewExists(name)
		} else if err != badger.ErrKeyNotFound {
			return fmt.Errorf("index: check existing: %w", err)
		}

		meta, err := json.Marshal(indexMeta{Type: typ})
		if err != nil {
			return fmt.Errorf("index: encode meta: %w", err)
		}
		return txn.Set(indexMetaKey(name), meta)
	})
}

// RemoveIndex deletes a named index and every entry under it.
func (s *Store) RemoveIndex(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(indexMetaKey(name)); err == badger.ErrKeyNotFound {
			return shareerr.NewNotFound(name)
		} else if err != nil {
			return fmt.Errorf("index: check existing: %w", err)
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := entryPrefix(name)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("index: delete entry: %w", err)
			}
		}
		return txn.Delete(indexMetaKey(name))
	})
}

// StatIndex returns the attribute type an index was created with.
func (s *Store) StatIndex(name string) (Type, error) {
	var typ Type
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexMetaKey(name))
		if err == badger.ErrKeyNotFound {
			return shareerr.NewNotFound(name)
		} else if err != nil {
			return fmt.Errorf("index: get meta: %w", err)
		}
		return item.Value(func(val []byte) error {
			var meta indexMeta
			if err := json.Unmarshal(val, &meta); err != nil {
				return fmt.Errorf("index: decode meta: %w", err)
			}
			typ = meta.Type
			return nil
		})
	})
	return typ, err
}

// Put adds or replaces the entry for key in the named index. No
// handler in pkg/handlers calls it, so WriteAttrib does not update
// any index.
func (s *Store) Put(indexName string, e Entry) error {
	buf, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("index: encode entry: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(indexName, e.Key), buf)
	})
}

// ReadIndexDir lists up to limit entries of the named index starting
// after cookie (an opaque offset; 0 means from the beginning), in key
// order.
func (s *Store) ReadIndexDir(indexName string, cookie uint64, limit int) ([]Entry, uint64, error) {
	var entries []Entry
	var nextCookie uint64

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := entryPrefix(indexName)
		var skipped uint64
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if skipped < cookie {
				skipped++
				continue
			}
			if len(entries) >= limit {
				nextCookie = skipped
				return nil
			}
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return err
				}
				entries = append(entries, e)
				return nil
			}); err != nil {
				return fmt.Errorf("index: decode entry: %w", err)
			}
			skipped++
		}
		return nil
	})
	return entries, nextCookie, err
}

// ReadQuery answers a query over the named index: an exact-match or
// prefix search (queryString ending in "*") against the indexed key,
// returning every matching entry. This is a deliberate simplification
// of the original query language (§9 open question) down to the two
// match forms a BeOS B_STRING_TYPE query attribute most commonly used.
func (s *Store) ReadQuery(indexName, queryString string) ([]Entry, error) {
	var results []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := entryPrefix(indexName)

		isPrefixQuery := len(queryString) > 0 && queryString[len(queryString)-1] == '*'
		match := queryString
		if isPrefixQuery {
			match = queryString[:len(queryString)-1]
		}

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var e Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("index: decode entry: %w", err)
			}
			if isPrefixQuery {
				if len(e.Key) >= len(match) && e.Key[:len(match)] == match {
					results = append(results, e)
				}
			} else if e.Key == match {
				results = append(results, e)
			}
		}
		return nil
	})
	return results, err
}
