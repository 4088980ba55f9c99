// Package bigtable adapts Cloud Bigtable to the litetable store contracts.
//
// Scans are translated into Bigtable row ranges and server-side filters, and stream lazily so
// only the rows the caller consumes are held in memory. Bigtable collects old versions
// asynchronously, so version limits are also applied to every row read.
package bigtable

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/bigtable"
	"github.com/litetable/litetable-kit/pkg/litetable"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

type Config struct {
	Project  string
	Instance string
	// EmulatorHost connects to a Bigtable emulator without credentials.
	EmulatorHost string
	// Options are passed to both the data and the admin client.
	Options []option.ClientOption
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Project == "" {
		errGrp = append(errGrp, errors.New("bigtable project is required"))
	}
	if c.Instance == "" {
		errGrp = append(errGrp, errors.New("bigtable instance is required"))
	}
	return errors.Join(errGrp...)
}

type Store struct {
	cfg Config

	client *bigtable.Client
	admin  *bigtable.AdminClient

	// maxVersions caches family version limits per table
	mu          sync.RWMutex
	maxVersions map[string]map[string]int
	now         func() time.Time
}

func New(cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Store{
		cfg:         *cfg,
		maxVersions: make(map[string]map[string]int),
		now:         time.Now,
	}, nil
}

// Start creates the data and admin clients.
func (s *Store) Start() error {
	ctx := context.Background()

	dataOpts, err := s.clientOptions()
	if err != nil {
		return err
	}
	client, err := bigtable.NewClient(ctx, s.cfg.Project, s.cfg.Instance, dataOpts...)
	if err != nil {
		return fmt.Errorf("failed to create bigtable client: %w", err)
	}

	adminOpts, err := s.clientOptions()
	if err != nil {
		_ = client.Close()
		return err
	}
	admin, err := bigtable.NewAdminClient(ctx, s.cfg.Project, s.cfg.Instance, adminOpts...)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to create bigtable admin client: %w", err)
	}

	s.client = client
	s.admin = admin

	log.Debug().
		Str("project", s.cfg.Project).
		Str("instance", s.cfg.Instance).
		Bool("emulator", s.cfg.EmulatorHost != "").
		Msg("bigtable clients created")
	return nil
}

// clientOptions returns the options of one client. Each client gets its own emulator
// connection because closing a client closes its connection.
func (s *Store) clientOptions() ([]option.ClientOption, error) {
	opts := append([]option.ClientOption{}, s.cfg.Options...)
	if s.cfg.EmulatorHost == "" {
		return opts, nil
	}

	conn, err := grpc.NewClient(s.cfg.EmulatorHost,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial bigtable emulator at %s: %w", s.cfg.EmulatorHost, err)
	}
	return append(opts, option.WithGRPCConn(conn)), nil
}

func (s *Store) Stop() error {
	var errGrp []error
	if s.client != nil {
		errGrp = append(errGrp, s.client.Close())
		s.client = nil
	}
	if s.admin != nil {
		errGrp = append(errGrp, s.admin.Close())
		s.admin = nil
	}
	return errors.Join(errGrp...)
}

func (s *Store) Name() string {
	return "Bigtable Store"
}

// Table returns the data-plane handle of a table.
func (s *Store) Table(name string) litetable.Table {
	return &tableHandle{store: s, name: name}
}

func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	_, err := s.admin.TableInfo(ctx, name)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) CreateTable(ctx context.Context, schema litetable.TableSchema) error {
	if schema.Name == "" {
		return errors.New("table name is required")
	}

	families := make(map[string]bigtable.GCPolicy, len(schema.Families))
	limits := make(map[string]int, len(schema.Families))
	for _, f := range schema.Families {
		if f.MaxVersions < 1 {
			return fmt.Errorf("column family %s must keep at least one version", f.Name)
		}
		if _, ok := families[f.Name]; ok {
			return fmt.Errorf("duplicate column family: %s", f.Name)
		}
		families[f.Name] = bigtable.MaxVersionsPolicy(f.MaxVersions)
		limits[f.Name] = f.MaxVersions
	}

	err := s.admin.CreateTableFromConf(ctx, &bigtable.TableConf{
		TableID:  schema.Name,
		Families: families,
	})
	if status.Code(err) == codes.AlreadyExists {
		return litetable.NewError(litetable.ErrSchemaConflict, "table %s already exists",
			schema.Name)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.maxVersions[schema.Name] = limits
	s.mu.Unlock()
	return nil
}

// DisableTable only checks that the table exists. Bigtable tables have no disabled state.
func (s *Store) DisableTable(ctx context.Context, name string) error {
	exists, err := s.TableExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return litetable.NewError(litetable.ErrTableNotFound, "table %s", name)
	}
	log.Debug().Str("table", name).Msg("bigtable has no disabled state, skipping")
	return nil
}

func (s *Store) DropTable(ctx context.Context, name string) error {
	err := s.admin.DeleteTable(ctx, name)
	if status.Code(err) == codes.NotFound {
		return litetable.NewError(litetable.ErrTableNotFound, "table %s", name)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.maxVersions, name)
	s.mu.Unlock()
	return nil
}

// familyLimits returns the version limit of every family of a table, reading the table's GC
// policies when they are not cached.
func (s *Store) familyLimits(ctx context.Context, name string) (map[string]int, error) {
	s.mu.RLock()
	limits, ok := s.maxVersions[name]
	s.mu.RUnlock()
	if ok {
		return limits, nil
	}

	info, err := s.admin.TableInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	limits = make(map[string]int, len(info.FamilyInfos))
	for _, f := range info.FamilyInfos {
		var n int
		if _, err = fmt.Sscanf(f.GCPolicy, "versions() > %d", &n); err == nil && n > 0 {
			limits[f.Name] = n
		}
	}

	s.mu.Lock()
	s.maxVersions[name] = limits
	s.mu.Unlock()
	return limits, nil
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
