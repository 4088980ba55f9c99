package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/litetable/litetable-kit/internal/store"
	"github.com/litetable/litetable-kit/pkg/filter"
	"github.com/litetable/litetable-kit/pkg/litetable"
	"github.com/litetable/litetable-kit/pkg/mutation"
	"github.com/litetable/litetable-kit/pkg/projection"
	"github.com/litetable/litetable-kit/pkg/scan"
	"github.com/litetable/litetable-kit/pkg/schema"
)

// job runs against a started backend.
type job func(ctx context.Context, backend store.Backend) error

// command parses its flags and returns the job to run.
type command func(args []string, out io.Writer) (job, error)

var commands = map[string]command{
	"provision": provisionCommand,
	"put":       putCommand,
	"scan":      scanCommand,
}

// conditions collects repeated family:column=value flags.
type conditions []litetable.Condition

func (c *conditions) String() string {
	parts := make([]string, 0, len(*c))
	for _, cond := range *c {
		parts = append(parts, fmt.Sprintf("%s:%s=%s", cond.Family, cond.Qualifier, cond.Value))
	}
	return strings.Join(parts, ",")
}

func (c *conditions) Set(value string) error {
	column, val, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected family:column=value, got %q", value)
	}
	family, qualifier, ok := strings.Cut(column, ":")
	if !ok {
		return fmt.Errorf("expected family:column=value, got %q", value)
	}
	*c = append(*c, litetable.Condition{
		Family:    family,
		Qualifier: []byte(qualifier),
		Value:     []byte(val),
	})
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func provisionCommand(args []string, out io.Writer) (job, error) {
	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	table := fs.String("table", "", "table name")
	families := fs.String("families", "", "comma separated column families")
	maxVersions := fs.Int("max-versions", schema.DefaultMaxVersions, "versions kept per cell")
	recreate := fs.Bool("recreate", false, "drop the table first if it exists")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *table == "" {
		return nil, errors.New("provision: -table is required")
	}

	return func(ctx context.Context, backend store.Backend) error {
		p := schema.New(backend).
			WithTableName(*table).
			WithMaxVersions(*maxVersions).
			WithSimpleColumnFamilies(splitList(*families)...)

		var err error
		if *recreate {
			err = p.DeleteAndRecreate(ctx)
		} else {
			err = p.Create(ctx)
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "table %s ready with %d families\n", *table,
			len(p.Schema().Families))
		return err
	}, nil
}

func putCommand(args []string, out io.Writer) (job, error) {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	table := fs.String("table", "", "table name")
	row := fs.String("row", "", "row key")
	family := fs.String("family", "", "column family")
	qualifier := fs.String("qualifier", "", "column qualifier")
	value := fs.String("value", "", "cell value")
	timestamp := fs.Int64("timestamp", litetable.LatestTimestamp,
		"cell timestamp in milliseconds since the epoch (default now)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *table == "" {
		return nil, errors.New("put: -table is required")
	}

	return func(ctx context.Context, backend store.Backend) error {
		batch := mutation.New(backend.Table(*table))
		err := batch.Builder().
			WithRowKeyString(*row).
			WithColumnFamily(*family).
			WithTimestamp(*timestamp).
			PutString(*qualifier, *value)
		if err != nil {
			return err
		}
		if err = batch.PutAll(ctx); err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "wrote %d cell\n", batch.Len())
		return err
	}, nil
}

func scanCommand(args []string, out io.Writer) (job, error) {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	table := fs.String("table", "", "table name")
	families := fs.String("family", "", "comma separated column families (default all)")
	start := fs.String("start", "", "first row key, inclusive")
	stop := fs.String("stop", "", "last row key, exclusive")
	prefix := fs.String("prefix", "", "only print columns starting with this prefix")
	var where conditions
	fs.Var(&where, "where", "family:column=value the row must match (repeatable)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *table == "" {
		return nil, errors.New("scan: -table is required")
	}

	pred := filter.New()
	for _, c := range where {
		var err error
		pred, err = pred.WithColumnFamily(c.Family).ColumnBytes(c.Qualifier).ValueMustEqual(c.Value)
		if err != nil {
			return nil, err
		}
	}

	return func(ctx context.Context, backend store.Backend) error {
		b := scan.New(backend.Table(*table)).
			WithColumnFamilies(splitList(*families)...).
			StartAtString(*start).
			StopAtString(*stop)
		if pred.Len() > 0 {
			b = b.WithFilter(pred.Build())
		}

		rows, err := b.Build(ctx)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			if err = printRow(out, rows.Row(), *prefix); err != nil {
				return err
			}
		}
		return rows.Err()
	}, nil
}

func printRow(out io.Writer, row litetable.Row, prefix string) error {
	families := make([]string, 0, len(row.Columns))
	for family := range row.Columns {
		families = append(families, family)
	}
	slices.Sort(families)

	for _, family := range families {
		p, err := projection.ForStrings(row, family)
		if err != nil {
			return err
		}
		for qualifier, value := range p.ColumnsStartingWith(prefix).All() {
			if _, err = fmt.Fprintf(out, "%s\t%s:%s\t%s\n", row.Key, family, qualifier,
				value); err != nil {
				return err
			}
		}
	}
	return nil
}
