package store

import (
	"testing"

	"github.com/litetable/litetable-kit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	tests := map[string]struct {
		props    map[string]string
		wantName string
	}{
		"memory without wal": {
			props:    map[string]string{"wal_enabled": "false"},
			wantName: "Memory Store",
		},
		"memory with wal": {
			props:    map[string]string{"wal_enabled": "true"},
			wantName: "Memory Store",
		},
		"pebble": {
			props:    map[string]string{"backend": "pebble"},
			wantName: "Pebble Store",
		},
		"bigtable": {
			props: map[string]string{
				"backend":           "bigtable",
				"bigtable_project":  "p",
				"bigtable_instance": "i",
			},
			wantName: "Bigtable Store",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := config.FromProperties(t.TempDir(), tc.props)
			require.NoError(t, err)

			got, err := Open(cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, got.Name())
		})
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open(&config.Config{Backend: "hbase"})
	require.Error(t, err)
}
