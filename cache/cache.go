// Package cache keeps classifier responses in BadgerDB so re-running a
// session on the same media skips the slow service calls.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// Options configures the cache.
type Options struct {
	// Dir holds the badger data files. Required unless InMemory is set.
	Dir string

	// InMemory runs badger without disk persistence.
	InMemory bool

	// TTL expires entries; zero keeps them forever.
	TTL time.Duration

	// Logger receives badger warnings and errors. Nil means the logrus
	// standard logger.
	Logger logrus.FieldLogger
}

// Cache is a typed key/value store. A nil *Cache is a valid, always-empty
// cache, so callers can disable caching by not opening one.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
	log logrus.FieldLogger
}

func Open(opts Options) (*Cache, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("cache: Options.Dir is required for on-disk mode")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{log.WithField("component", "badger")})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", opts.Dir, err)
	}
	return &Cache{db: db, ttl: opts.TTL, log: log}, nil
}

// Get decodes the value stored under key into v. It reports false, with a
// nil error, on a miss.
func (c *Cache) Get(key string, v any) (bool, error) {
	if c == nil {
		return false, nil
	}
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get: %w", err)
	}
	if err := msgpack.Unmarshal(val, v); err != nil {
		// A stale encoding is a miss, not a failure.
		c.log.WithField("key", key).Warnf("dropping undecodable cache entry: %v", err)
		return false, nil
	}
	return true, nil
}

func (c *Cache) Put(key string, v any) error {
	if c == nil {
		return nil
	}
	val, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), val)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

// Key joins parts into a cache key. Parts must not contain NUL.
func Key(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// FileDigest returns the hex SHA-256 of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// badgerLogger forwards badger output to logrus, demoting its chatty info
// messages to debug.
type badgerLogger struct{ log logrus.FieldLogger }

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.log.Errorf(strings.TrimSpace(f), v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.log.Warnf(strings.TrimSpace(f), v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.log.Debugf(strings.TrimSpace(f), v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.log.Debugf(strings.TrimSpace(f), v...) }
