package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketTree = []byte("tree")

// Options configure a BoltStore
type Options struct {
	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
}

// BoltStore implements Store on a single BoltDB file. Objects map to
// nested buckets and leaves to JSON-encoded values, so a path such as
// /meetings/ev1/mt1/status is bucket "meetings" > "ev1" > "mt1", key
// "status".
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) <dataDir>/primeslot.db
func NewBoltStore(dataDir string, opts Options) (*BoltStore, error) {
	return Open(filepath.Join(dataDir, "primeslot.db"), opts)
}

// Open opens the database file at path
func Open(path string, opts Options) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: opts.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketTree); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketTree, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *BoltStore) Path() string {
	return s.db.Path()
}

// Backup writes a consistent copy of the whole database to w
func (s *BoltStore) Backup(ctx context.Context, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		n, err = tx.WriteTo(w)
		return err
	})
	return n, err
}

func (s *BoltStore) View(ctx context.Context, fn func(Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (s *BoltStore) Transact(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := fn(&boltTx{tx: tx, writable: true}); err != nil {
			return err
		}
		// Roll back if the caller's context ended while fn ran.
		return ctx.Err()
	})
}

func (s *BoltStore) Get(ctx context.Context, path string, dst any) (bool, error) {
	var found bool
	err := s.View(ctx, func(r Reader) error {
		var err error
		found, err = r.Get(path, dst)
		return err
	})
	return found, err
}

func (s *BoltStore) Exists(ctx context.Context, path string) (bool, error) {
	return s.Get(ctx, path, nil)
}

func (s *BoltStore) Keys(ctx context.Context, path string) ([]string, error) {
	var keys []string
	err := s.View(ctx, func(r Reader) error {
		var err error
		keys, err = r.Keys(path)
		return err
	})
	return keys, err
}

func (s *BoltStore) Set(ctx context.Context, path string, value any) error {
	return s.Transact(ctx, func(tx Tx) error {
		return tx.Set(path, value)
	})
}

func (s *BoltStore) Update(ctx context.Context, path string, fields map[string]any) error {
	return s.Transact(ctx, func(tx Tx) error {
		return tx.Update(path, fields)
	})
}

func (s *BoltStore) Remove(ctx context.Context, path string) error {
	return s.Transact(ctx, func(tx Tx) error {
		return tx.Remove(path)
	})
}

func (s *BoltStore) Push(ctx context.Context, path string, value any) (string, error) {
	var key string
	err := s.Transact(ctx, func(tx Tx) error {
		var err error
		key, err = tx.Push(path, value)
		return err
	})
	return key, err
}

func (s *BoltStore) MultiUpdate(ctx context.Context, updates map[string]any) error {
	split := make([][]string, 0, len(updates))
	paths := make([]string, 0, len(updates))
	for p := range updates {
		segs, err := splitPath(p)
		if err != nil {
			return err
		}
		if len(segs) == 0 {
			return fmt.Errorf("%w: cannot write the root", ErrInvalidPath)
		}
		split = append(split, segs)
		paths = append(paths, p)
	}
	if err := checkOverlaps(split); err != nil {
		return err
	}
	sort.Strings(paths)

	return s.Transact(ctx, func(tx Tx) error {
		for _, p := range paths {
			if err := tx.Set(p, updates[p]); err != nil {
				return fmt.Errorf("failed to write %s: %w", p, err)
			}
		}
		return nil
	})
}

// boltTx implements Tx over a bolt transaction
type boltTx struct {
	tx       *bolt.Tx
	writable bool
}

func (t *boltTx) root() *bolt.Bucket {
	return t.tx.Bucket(bucketTree)
}

// bucketAt returns the bucket at segs, or nil
func (t *boltTx) bucketAt(segs []string) *bolt.Bucket {
	b := t.root()
	for _, s := range segs {
		if b = b.Bucket([]byte(s)); b == nil {
			return nil
		}
	}
	return b
}

// lookup resolves segs to either a bucket or a leaf value
func (t *boltTx) lookup(segs []string) (*bolt.Bucket, []byte) {
	if len(segs) == 0 {
		return t.root(), nil
	}
	parent := t.bucketAt(segs[:len(segs)-1])
	if parent == nil {
		return nil, nil
	}
	last := []byte(segs[len(segs)-1])
	if b := parent.Bucket(last); b != nil {
		return b, nil
	}
	return nil, parent.Get(last)
}

func (t *boltTx) Get(path string, dst any) (bool, error) {
	segs, err := splitPath(path)
	if err != nil {
		return false, err
	}

	b, leaf := t.lookup(segs)
	switch {
	case leaf != nil:
		if dst == nil {
			return true, nil
		}
		if err := json.Unmarshal(leaf, dst); err != nil {
			return true, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return true, nil
	case b != nil:
		tree := readBucket(b)
		if tree == nil {
			return false, nil
		}
		if dst == nil {
			return true, nil
		}
		data, err := json.Marshal(tree)
		if err != nil {
			return true, err
		}
		if err := json.Unmarshal(data, dst); err != nil {
			return true, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return true, nil
	default:
		return false, nil
	}
}

func (t *boltTx) Exists(path string) (bool, error) {
	return t.Get(path, nil)
}

func (t *boltTx) Keys(path string) ([]string, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	b, _ := t.lookup(segs)
	if b == nil {
		return []string{}, nil
	}
	keys := []string{}
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if v == nil && isEmpty(b.Bucket(k)) {
			continue
		}
		keys = append(keys, string(k))
	}
	return keys, nil
}

func (t *boltTx) Set(path string, value any) error {
	if !t.writable {
		return fmt.Errorf("write to %s in a read-only transaction", path)
	}
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return fmt.Errorf("%w: cannot write the root", ErrInvalidPath)
	}

	tree, err := normalize(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if isAbsent(tree) {
		return t.remove(segs)
	}

	parent, err := t.ensureBuckets(segs[:len(segs)-1])
	if err != nil {
		return err
	}
	return writeValue(parent, segs[len(segs)-1], tree)
}

func (t *boltTx) Update(path string, fields map[string]any) error {
	base := strings.TrimRight(path, "/")
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := t.Set(base+"/"+strings.Trim(k, "/"), fields[k]); err != nil {
			return err
		}
	}
	return nil
}

func (t *boltTx) Remove(path string) error {
	if !t.writable {
		return fmt.Errorf("remove %s in a read-only transaction", path)
	}
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return fmt.Errorf("%w: cannot remove the root", ErrInvalidPath)
	}
	return t.remove(segs)
}

func (t *boltTx) Push(path string, value any) (string, error) {
	key := NewKey()
	if err := t.Set(strings.TrimRight(path, "/")+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}

func (t *boltTx) remove(segs []string) error {
	parent := t.bucketAt(segs[:len(segs)-1])
	if parent == nil {
		return nil
	}
	if err := deleteKey(parent, []byte(segs[len(segs)-1])); err != nil {
		return err
	}
	return t.prune(segs[:len(segs)-1])
}

// prune deletes buckets along segs that were left empty, deepest first
func (t *boltTx) prune(segs []string) error {
	for depth := len(segs); depth > 0; depth-- {
		b := t.bucketAt(segs[:depth])
		if b == nil || !isEmpty(b) {
			return nil
		}
		parent := t.bucketAt(segs[:depth-1])
		if err := parent.DeleteBucket([]byte(segs[depth-1])); err != nil {
			return err
		}
	}
	return nil
}

// ensureBuckets walks segs creating buckets as needed. A leaf sitting
// where a bucket is needed is replaced.
func (t *boltTx) ensureBuckets(segs []string) (*bolt.Bucket, error) {
	b := t.root()
	for _, s := range segs {
		key := []byte(s)
		if nb := b.Bucket(key); nb != nil {
			b = nb
			continue
		}
		if b.Get(key) != nil {
			if err := b.Delete(key); err != nil {
				return nil, err
			}
		}
		nb, err := b.CreateBucket(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", s, err)
		}
		b = nb
	}
	return b, nil
}

func deleteKey(b *bolt.Bucket, key []byte) error {
	if b.Bucket(key) != nil {
		return b.DeleteBucket(key)
	}
	if b.Get(key) != nil {
		return b.Delete(key)
	}
	return nil
}

// writeValue replaces key in b with v, which must come from normalize
func writeValue(b *bolt.Bucket, key string, v any) error {
	k := []byte(key)
	if err := deleteKey(b, k); err != nil {
		return err
	}

	obj, ok := v.(map[string]any)
	if !ok {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return b.Put(k, data)
	}

	if isAbsent(obj) {
		return nil
	}
	nb, err := b.CreateBucket(k)
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", key, err)
	}
	for ck, cv := range obj {
		if err := validateKey(ck); err != nil {
			return err
		}
		if isAbsent(cv) {
			continue
		}
		if err := writeValue(nb, ck, cv); err != nil {
			return err
		}
	}
	if isEmpty(nb) {
		return b.DeleteBucket(k)
	}
	return nil
}

// readBucket copies a bucket into a map of json.RawMessage leaves. Empty
// buckets read as nil.
func readBucket(b *bolt.Bucket) map[string]any {
	out := make(map[string]any)
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if v == nil {
			if child := readBucket(b.Bucket(k)); child != nil {
				out[string(k)] = child
			}
			continue
		}
		out[string(k)] = json.RawMessage(bytes.Clone(v))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isEmpty(b *bolt.Bucket) bool {
	if b == nil {
		return true
	}
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if v != nil || !isEmpty(b.Bucket(k)) {
			return false
		}
	}
	return true
}

// normalize converts any JSON-encodable value into nil, a scalar, a
// []any, or a map[string]any tree, keeping numbers exact.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if raw, ok := value.(json.RawMessage); ok && len(raw) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// isAbsent reports whether v is stored as nothing: null or an object with
// no present children.
func isAbsent(v any) bool {
	switch tv := v.(type) {
	case nil:
		return true
	case map[string]any:
		for _, cv := range tv {
			if !isAbsent(cv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
