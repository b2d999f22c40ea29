package stockpile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/unkn0wn-root/stockpile/store"
)

// DefaultDatabase is the name selected when callers pass an empty database name
// and NewRegistry was given no explicit default.
const DefaultDatabase = "default"

// Database is one logical partition: its own store (and therefore its own
// connection pool), compression policy and stampede timings.
type Database struct {
	Name  string
	Store store.Store

	// Compression zlib+base64 encodes payloads. Readers and writers of one
	// database must agree on it; payloads are not self-describing.
	Compression bool

	LockExpiration time.Duration // 0 => Options.LockExpiration
	Slumber        time.Duration // 0 => Options.Slumber
}

// Registry maps database names to stores and per-database policy.
// It is immutable after NewRegistry and safe for concurrent use.
type Registry struct {
	def   string
	dbs   map[string]Database
	names []string
}

func NewRegistry(defaultName string, dbs ...Database) (*Registry, error) {
	if defaultName == "" {
		defaultName = DefaultDatabase
	}
	r := &Registry{
		def: defaultName,
		dbs: make(map[string]Database, len(dbs)),
	}
	for _, db := range dbs {
		switch {
		case db.Name == "":
			return nil, errors.New("stockpile: database name is required")
		case db.Store == nil:
			return nil, fmt.Errorf("stockpile: database %q has no store", db.Name)
		case db.LockExpiration < 0 || db.Slumber < 0:
			return nil, fmt.Errorf("stockpile: database %q has negative timings", db.Name)
		}
		if _, dup := r.dbs[db.Name]; dup {
			return nil, fmt.Errorf("stockpile: database %q registered twice", db.Name)
		}
		r.dbs[db.Name] = db
		r.names = append(r.names, db.Name)
	}
	if _, ok := r.dbs[defaultName]; !ok {
		return nil, &DatabaseNotFoundError{Name: defaultName}
	}
	sort.Strings(r.names)
	return r, nil
}

// Default returns the name used when callers omit one.
func (r *Registry) Default() string { return r.def }

// Names returns registered database names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) HasDatabase(name string) bool {
	_, ok := r.dbs[r.resolve(name)]
	return ok
}

func (r *Registry) IsCompressionEnabled(name string) (bool, error) {
	db, err := r.database(name)
	if err != nil {
		return false, err
	}
	return db.Compression, nil
}

// WithStore invokes fn with the store registered under name.
// The store is borrowed for the duration of fn only.
func (r *Registry) WithStore(name string, fn func(store.Store) error) error {
	db, err := r.database(name)
	if err != nil {
		return err
	}
	return fn(db.Store)
}

// Close closes every registered store. Stores registered under several
// names are closed once per name and must tolerate that.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for _, name := range r.names {
		if err := r.dbs[name].Store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) resolve(name string) string {
	if name == "" {
		return r.def
	}
	return name
}

func (r *Registry) database(name string) (Database, error) {
	name = r.resolve(name)
	db, ok := r.dbs[name]
	if !ok {
		return Database{}, &DatabaseNotFoundError{Name: name}
	}
	return db, nil
}
