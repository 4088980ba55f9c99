package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestCLI(t *testing.T) {
	tests := map[string]struct {
		backend []string
	}{
		"defaults":        {},
		"memory with wal": {backend: []string{"-set", "wal_enabled=true"}},
		"pebble":          {backend: []string{"-set", "backend=pebble"}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			global := append([]string{"-config", t.TempDir()}, tc.backend...)
			cli := func(args ...string) (string, error) {
				return runCLI(t, append(append([]string{}, global...), args...)...)
			}

			out, err := cli("provision", "-table", "people", "-families", "main,meta")
			require.NoError(t, err)
			require.Equal(t, "table people ready with 2 families\n", out)

			_, err = cli("provision", "-table", "people", "-families", "main")
			require.Error(t, err)

			for _, put := range [][]string{
				{"-row", "champ:1", "-family", "main", "-qualifier", "status", "-value", "active"},
				{"-row", "champ:1", "-family", "meta", "-qualifier", "team", "-value", "red"},
				{"-row", "champ:2", "-family", "main", "-qualifier", "status", "-value", "retired"},
			} {
				out, err = cli(append([]string{"put", "-table", "people"}, put...)...)
				require.NoError(t, err)
				require.Equal(t, "wrote 1 cell\n", out)
			}

			out, err = cli("scan", "-table", "people")
			require.NoError(t, err)
			require.Equal(t, "champ:1\tmain:status\tactive\n"+
				"champ:1\tmeta:team\tred\n"+
				"champ:2\tmain:status\tretired\n", out)

			out, err = cli("scan", "-table", "people", "-family", "main",
				"-where", "main:status=active")
			require.NoError(t, err)
			require.Equal(t, "champ:1\tmain:status\tactive\n", out)

			out, err = cli("scan", "-table", "people", "-start", "champ:2")
			require.NoError(t, err)
			require.Equal(t, "champ:2\tmain:status\tretired\n", out)

			out, err = cli("scan", "-table", "people", "-prefix", "te")
			require.NoError(t, err)
			require.Equal(t, "champ:1\tmeta:team\tred\n", out)

			out, err = cli("provision", "-table", "people", "-families", "main", "-recreate")
			require.NoError(t, err)
			require.Equal(t, "table people ready with 1 families\n", out)

			out, err = cli("scan", "-table", "people")
			require.NoError(t, err)
			require.Empty(t, out)
		})
	}
}

func TestCLIErrors(t *testing.T) {
	tests := map[string][]string{
		"no command":       {},
		"unknown command":  {"drop"},
		"missing table":    {"scan"},
		"bad property":     {"-set", "noequals", "scan"},
		"bad where clause": {"scan", "-table", "t", "-where", "nocolon"},
		"unknown table":    {"scan", "-table", "missing"},
		"unknown family":   {"put", "-table", "missing", "-row", "r", "-family", "f", "-qualifier", "q"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := runCLI(t, append([]string{"-config", t.TempDir()}, args...)...)
			require.Error(t, err)
		})
	}
}
