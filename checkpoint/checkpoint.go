// checkpoint stores finished results in a bolt database, so
// interrupted batch runs can be resumed.
package checkpoint

import (
	"encoding/json"
	"strings"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

// MAIN is the bucket name for all results.
var MAIN = []byte("main")

// Store is a JSON key-value store backed by bolt. A nil Store is valid
// and stores nothing.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) a checkpoint database.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	log.Infof("Using checkpoint database %s", path)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Key joins key parts.
func Key(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// Save serializes v to JSON and stores it under the key.
func (s *Store) Save(key string, v interface{}) error {
	if s == nil {
		return nil
	}
	dataB, err := json.Marshal(v)
	if err != nil {
		log.Error("Error serializing checkpoint", err)
		return err
	}
	err = SaveData(s.db, []byte(key), dataB)
	if err != nil {
		log.Error("Error saving checkpoint", err)
	}
	return err
}

// Load deserializes the value stored under the key into v. found is
// false if there is no such key.
func (s *Store) Load(key string, v interface{}) (found bool, err error) {
	if s == nil {
		return false, nil
	}
	b, err := LoadData(s.db, []byte(key))
	if err != nil || b == nil {
		return false, err
	}
	if err = json.Unmarshal(b, v); err != nil {
		return false, err
	}
	return true, nil
}

// SaveData saves values in bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	err := db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(MAIN)
		if err != nil {
			return err
		}

		err = b.Put(key, data)
		return err
	})
	return err
}

// LoadData loads data from bolt database.
func LoadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(MAIN)
		if b == nil {
			return nil
		}

		v := b.Get(key)
		if v != nil {
			// v is only valid during the transaction
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
