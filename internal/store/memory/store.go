// Package memory is a sharded in-memory store.
//
// Each table splits its rows across a fixed number of shards chosen by hashing the row key, and
// each shard has its own lock and an ordered tree of rows. Writes to different shards do not
// contend. A scan has no known key prefix so it visits every shard concurrently and merges the
// results by key.
//
// When the write-ahead log is enabled every change is logged before it is applied. Stop writes a
// full backup and truncates the log; Start restores the newest backup and replays the entries
// logged after it.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/litetable/litetable-kit/internal/wal"
	"github.com/litetable/litetable-kit/pkg/litetable"
	"github.com/rs/zerolog/log"
)

const defaultShardCount = 2

type Store struct {
	mu     sync.RWMutex
	tables map[string]*table

	shardCount int
	wal        *wal.Manager
	dataDir    string
	now        func() time.Time
}

type Config struct {
	// ShardCount is the number of shards per table. Zero uses the default.
	ShardCount int
	// DataDir holds the write-ahead log and backups. Required when WALEnabled is set.
	DataDir    string
	WALEnabled bool
}

func (c *Config) validate() error {
	var errGrp []error
	if c.ShardCount < 0 || c.ShardCount > 50 {
		errGrp = append(errGrp, fmt.Errorf("shard count must be between 1 and 50"))
	}
	if c.WALEnabled && c.DataDir == "" {
		errGrp = append(errGrp, fmt.Errorf("data directory is required when the WAL is enabled"))
	}
	return errors.Join(errGrp...)
}

func New(cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	shardCount := cfg.ShardCount
	if shardCount == 0 {
		shardCount = defaultShardCount
	}

	s := &Store{
		tables:     make(map[string]*table),
		shardCount: shardCount,
		now:        time.Now,
	}
	if cfg.WALEnabled {
		s.dataDir = cfg.DataDir
	}
	return s, nil
}

// Start opens the write-ahead log, if enabled, restores the latest backup and replays the log.
func (s *Store) Start() error {
	if s.dataDir == "" {
		return nil
	}

	m, err := wal.New(&wal.Config{Path: s.dataDir})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	seq, err := s.loadFromLatestBackup()
	if err != nil {
		_ = m.Close()
		return err
	}
	if err = m.Load(seq, s.replay); err != nil {
		_ = m.Close()
		return fmt.Errorf("failed to replay WAL: %w", err)
	}
	s.wal = m

	log.Debug().
		Int("tables", len(s.tables)).
		Uint64("seq", m.Sequence()).
		Str("duration", time.Since(start).String()).
		Msg("memory store restored")
	return nil
}

// Stop backs up every table, truncates the write-ahead log and closes it. When the backup fails
// the log is left intact.
func (s *Store) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wal == nil {
		return nil
	}
	defer func() {
		s.wal = nil
	}()

	if err := s.saveBackup(s.snapshot(s.wal.Sequence())); err != nil {
		return errors.Join(err, s.wal.Close())
	}
	if err := s.wal.Truncate(); err != nil {
		return errors.Join(err, s.wal.Close())
	}
	s.maintainBackupLimit()
	return s.wal.Close()
}

func (s *Store) Name() string {
	return "Memory Store"
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
	if err := s.log(&wal.Entry{Operation: wal.OperationCreateTable, Table: schema.Name,
		Schema: &schema}); err != nil {
		return err
	}
	s.tables[schema.Name] = newTable(schema, s.shardCount)
	return nil
}

// DisableTable makes a table reject reads and writes until it is dropped.
func (s *Store) DisableTable(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return litetable.NewError(litetable.ErrTableNotFound, "table %s", name)
	}
	if err := s.log(&wal.Entry{Operation: wal.OperationDisableTable, Table: name}); err != nil {
		return err
	}
	t.disabled.Store(true)
	return nil
}

func (s *Store) DropTable(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[name]; !ok {
		return litetable.NewError(litetable.ErrTableNotFound, "table %s", name)
	}
	if err := s.log(&wal.Entry{Operation: wal.OperationDropTable, Table: name}); err != nil {
		return err
	}
	delete(s.tables, name)
	return nil
}

// lookup returns an enabled table.
func (s *Store) lookup(name string) (*table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(name)
}

func (s *Store) lookupLocked(name string) (*table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, litetable.NewError(litetable.ErrTableNotFound, "table %s", name)
	}
	if t.disabled.Load() {
		return nil, litetable.NewError(litetable.ErrTableDisabled, "table %s", name)
	}
	return t, nil
}

// log appends to the write-ahead log when it is enabled.
func (s *Store) log(e *wal.Entry) error {
	if s.wal == nil {
		return nil
	}
	if err := s.wal.Apply(e); err != nil {
		return fmt.Errorf("failed to log %s: %w", e.Operation, err)
	}
	return nil
}

// replay applies a logged change without logging it again.
func (s *Store) replay(e *wal.Entry) error {
	switch e.Operation {
	case wal.OperationCreateTable:
		if e.Schema == nil {
			return fmt.Errorf("create entry for %s has no schema", e.Table)
		}
		s.tables[e.Table] = newTable(*e.Schema, s.shardCount)
	case wal.OperationDisableTable:
		if t, ok := s.tables[e.Table]; ok {
			t.disabled.Store(true)
		}
	case wal.OperationDropTable:
		delete(s.tables, e.Table)
	case wal.OperationPut:
		t, ok := s.tables[e.Table]
		if !ok {
			log.Warn().Str("table", e.Table).Msg("WAL put for unknown table, skipping")
			return nil
		}
		t.apply(e.Cells)
	}
	return nil
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
