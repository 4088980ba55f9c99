// Package pebble is a persistent local store on top of the pebble key-value engine.
//
// Every cell version is its own pebble key (see keys.go), so a scan is a single bounded pebble
// iterator that is grouped into rows as it is advanced. Table schemas are stored as JSON next
// to the data. Versions beyond a family's limit are hidden on read and left on disk.
package pebble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/litetable/litetable-kit/pkg/litetable"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Dir is the pebble data directory.
	Dir string
	// FS overrides the filesystem, vfs.NewMem() in tests. Defaults to the OS filesystem.
	FS vfs.FS
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Dir == "" {
		errGrp = append(errGrp, errors.New("data directory is required"))
	}
	return errors.Join(errGrp...)
}

// tableMeta is the stored form of a table.
type tableMeta struct {
	Schema   litetable.TableSchema `json:"schema"`
	Disabled bool                  `json:"disabled"`
}

type Store struct {
	cfg Config

	db *pebble.DB

	mu     sync.RWMutex
	tables map[string]*tableMeta
	now    func() int64
}

func New(cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Store{
		cfg:    *cfg,
		tables: make(map[string]*tableMeta),
		now:    nowMillis,
	}, nil
}

// Start opens the database and loads the table schemas.
func (s *Store) Start() error {
	opts := &pebble.Options{
		FS:     s.cfg.FS,
		Logger: zerologAdapter{},
	}
	db, err := pebble.Open(s.cfg.Dir, opts)
	if err != nil {
		return fmt.Errorf("failed to open pebble at %s: %w", s.cfg.Dir, err)
	}

	if err = s.loadTables(db); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db

	log.Debug().Str("dir", s.cfg.Dir).Int("tables", len(s.tables)).Msg("pebble store opened")
	return nil
}

func (s *Store) Stop() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) Name() string {
	return "Pebble Store"
}

func (s *Store) loadTables(db *pebble.DB) error {
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: schemaPrefix,
		UpperBound: prefixEnd(schemaPrefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var meta tableMeta
		if err = json.Unmarshal(iter.Value(), &meta); err != nil {
			return fmt.Errorf("failed to parse schema %q: %w", iter.Key(), err)
		}
		s.tables[meta.Schema.Name] = &meta
	}
	return iter.Error()
}

// Table returns the data-plane handle of a table. The table does not need to exist yet.
func (s *Store) Table(name string) litetable.Table {
	return &tableHandle{store: s, name: name}
}

func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[name]
	return ok, nil
}

func (s *Store) CreateTable(ctx context.Context, schema litetable.TableSchema) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSchema(schema); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[schema.Name]; ok {
		return litetable.NewError(litetable.ErrSchemaConflict, "table %s already exists",
			schema.Name)
	}
	meta := &tableMeta{Schema: schema}
	if err := s.saveMeta(meta); err != nil {
		return err
	}
	s.tables[schema.Name] = meta
	return nil
}

// DisableTable makes a table reject reads and writes until it is dropped.
func (s *Store) DisableTable(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.tables[name]
	if !ok {
		return litetable.NewError(litetable.ErrTableNotFound, "table %s", name)
	}
	disabled := *meta
	disabled.Disabled = true
	if err := s.saveMeta(&disabled); err != nil {
		return err
	}
	s.tables[name] = &disabled
	return nil
}

// DropTable removes the schema and every cell of the table in one batch.
func (s *Store) DropTable(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[name]; !ok {
		return litetable.NewError(litetable.ErrTableNotFound, "table %s", name)
	}

	prefix := tablePrefix(name)
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(schemaKey(name), nil); err != nil {
		return err
	}
	if err := b.DeleteRange(prefix, prefixEnd(prefix), nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	delete(s.tables, name)
	return nil
}

func (s *Store) saveMeta(meta *tableMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err = s.db.Set(schemaKey(meta.Schema.Name), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save schema of %s: %w", meta.Schema.Name, err)
	}
	return nil
}

// lookup returns the schema of an enabled table.
func (s *Store) lookup(name string) (litetable.TableSchema, error) {
	s.mu.RLock()
	meta, ok := s.tables[name]
	s.mu.RUnlock()

	if !ok {
		return litetable.TableSchema{}, litetable.NewError(litetable.ErrTableNotFound,
			"table %s", name)
	}
	if meta.Disabled {
		return litetable.TableSchema{}, litetable.NewError(litetable.ErrTableDisabled,
			"table %s", name)
	}
	return meta.Schema, nil
}

func validateSchema(schema litetable.TableSchema) error {
	if schema.Name == "" {
		return errors.New("table name is required")
	}

	var errGrp []error
	seen := make(map[string]struct{}, len(schema.Families))
	for _, f := range schema.Families {
		if f.Name == "" {
			errGrp = append(errGrp, errors.New("column family name is required"))
		}
		if _, ok := seen[f.Name]; ok {
			errGrp = append(errGrp, fmt.Errorf("duplicate column family: %s", f.Name))
		}
		seen[f.Name] = struct{}{}
		if f.MaxVersions < 1 {
			errGrp = append(errGrp, fmt.Errorf("column family %s must keep at least one version",
				f.Name))
		}
	}
	return errors.Join(errGrp...)
}

type tableHandle struct {
	store *Store
	name  string
}

func (h *tableHandle) Put(ctx context.Context, cells []litetable.Cell) error {
	return h.store.put(ctx, h.name, cells)
}

func (h *tableHandle) Scan(ctx context.Context, q litetable.ScanQuery) (litetable.RowIterator, error) {
	return h.store.scan(ctx, h.name, q)
}

// zerologAdapter routes pebble's own logging through zerolog.
type zerologAdapter struct{}

func (zerologAdapter) Infof(format string, args ...interface{}) {
	log.Debug().Str("component", "pebble").Msgf(format, args...)
}

func (zerologAdapter) Errorf(format string, args ...interface{}) {
	log.Error().Str("component", "pebble").Msgf(format, args...)
}

func (zerologAdapter) Fatalf(format string, args ...interface{}) {
	log.Fatal().Str("component", "pebble").Msgf(format, args...)
}
