// Package schema declares tables and their column families and provisions them through a store's
// administrative client.
//
// Example:
//
//	err := schema.New(admin).
//		WithTableName("tableName").
//		WithSimpleColumnFamilies("columnFamily1", "columnFamily2", "columnFamily3").
//		DeleteAndRecreate(ctx)
package schema

import (
	"context"
	"slices"

	"github.com/litetable/litetable-kit/pkg/litetable"
	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=admin_mock.go -package=schema -source=schema.go

type admin interface {
	TableExists(ctx context.Context, name string) (bool, error)
	CreateTable(ctx context.Context, schema litetable.TableSchema) error
	DisableTable(ctx context.Context, name string) error
	DropTable(ctx context.Context, name string) error
}

// DefaultMaxVersions is the number of versions a family keeps unless configured otherwise.
const DefaultMaxVersions = 1

// Provisioner accumulates a table declaration. It is a value: each method returns a modified
// copy.
type Provisioner struct {
	admin       admin
	tableName   string
	maxVersions int
	families    []litetable.FamilySchema
}

func New(admin admin) Provisioner {
	return Provisioner{
		admin:       admin,
		maxVersions: DefaultMaxVersions,
	}
}

func (p Provisioner) WithTableName(name string) Provisioner {
	p.tableName = name
	return p
}

// WithMaxVersions sets how many versions families added after this call keep. Families that
// were already added are not changed.
func (p Provisioner) WithMaxVersions(n int) Provisioner {
	p.maxVersions = n
	return p
}

// WithSimpleColumnFamilies declares families using the current max versions setting.
func (p Provisioner) WithSimpleColumnFamilies(names ...string) Provisioner {
	p.families = slices.Clip(p.families)
	for _, name := range names {
		p.families = append(p.families, litetable.FamilySchema{
			Name:        name,
			MaxVersions: p.maxVersions,
		})
	}
	return p
}

// Schema returns the table declaration.
func (p Provisioner) Schema() litetable.TableSchema {
	return litetable.TableSchema{
		Name:     p.tableName,
		Families: slices.Clone(p.families),
	}
}

func (p Provisioner) validate() error {
	if p.admin == nil {
		return litetable.NewError(litetable.ErrBuilderState, "no admin client")
	}
	if p.tableName == "" {
		return litetable.NewError(litetable.ErrBuilderState,
			"table name not set, use WithTableName before provisioning")
	}
	for _, f := range p.families {
		if f.MaxVersions < 1 {
			return litetable.NewError(litetable.ErrBuilderState,
				"family %s must keep at least one version, got %d", f.Name, f.MaxVersions)
		}
	}
	return nil
}

// Create creates the table. It fails with litetable.ErrSchemaConflict when the table exists.
func (p Provisioner) Create(ctx context.Context) error {
	if err := p.validate(); err != nil {
		return err
	}

	exists, err := p.admin.TableExists(ctx, p.tableName)
	if err != nil {
		return litetable.WrapError(litetable.ErrStoreRead, err, "check table %s", p.tableName)
	}
	if exists {
		return litetable.NewError(litetable.ErrSchemaConflict, "table %s already exists",
			p.tableName)
	}

	if err = p.admin.CreateTable(ctx, p.Schema()); err != nil {
		return litetable.WrapError(litetable.ErrStoreWrite, err, "create table %s", p.tableName)
	}

	log.Info().
		Str("table", p.tableName).
		Int("families", len(p.families)).
		Msg("table created")
	return nil
}

// DeleteAndRecreate disables and drops the table when it exists, then creates it. The steps
// are not atomic: a failure after the drop leaves the table absent and its data lost.
func (p Provisioner) DeleteAndRecreate(ctx context.Context) error {
	if err := p.validate(); err != nil {
		return err
	}

	exists, err := p.admin.TableExists(ctx, p.tableName)
	if err != nil {
		return litetable.WrapError(litetable.ErrStoreRead, err, "check table %s", p.tableName)
	}

	if exists {
		log.Warn().Str("table", p.tableName).Msg("dropping table before recreating it")
		if err = p.admin.DisableTable(ctx, p.tableName); err != nil {
			return litetable.WrapError(litetable.ErrStoreWrite, err, "disable table %s",
				p.tableName)
		}
		if err = p.admin.DropTable(ctx, p.tableName); err != nil {
			return litetable.WrapError(litetable.ErrStoreWrite, err, "drop table %s", p.tableName)
		}
	}

	return p.Create(ctx)
}
