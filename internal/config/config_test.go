package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromProperties(t *testing.T) {
	tests := map[string]struct {
		props   map[string]string
		want    func(c *Config)
		wantErr bool
	}{
		"defaults": {
			want: func(c *Config) {},
		},
		"memory without wal": {
			props: map[string]string{"wal_enabled": "false", "data_dir": ""},
			want: func(c *Config) {
				c.WALEnabled = false
				c.DataDir = ""
			},
		},
		"wal without dir": {
			props:   map[string]string{"data_dir": ""},
			wantErr: true,
		},
		"pebble": {
			props: map[string]string{"backend": "pebble", "data_dir": "/data"},
			want: func(c *Config) {
				c.Backend = BackendPebble
				c.DataDir = "/data"
			},
		},
		"bigtable with emulator": {
			props: map[string]string{
				"backend":                "bigtable",
				"bigtable_project":       "p",
				"bigtable_instance":      "i",
				"bigtable_emulator_host": "localhost:8086",
			},
			want: func(c *Config) {
				c.Backend = BackendBigtable
				c.BigtableProject = "p"
				c.BigtableInstance = "i"
				c.BigtableEmulator = "localhost:8086"
			},
		},
		"memory tuning": {
			props: map[string]string{
				"shard_count":            "8",
				"wal_enabled":            "false",
				"debug":                  "true",
				"stop_timeout":           "2m",
				"hbase.zookeeper.quorum": "ignored",
			},
			want: func(c *Config) {
				c.ShardCount = 8
				c.WALEnabled = false
				c.Debug = true
				c.StopTimeout = 2 * time.Minute
			},
		},
		"stop timeout in seconds": {
			props: map[string]string{"stop_timeout": "10"},
			want:  func(c *Config) { c.StopTimeout = 10 * time.Second },
		},
		"bad shard count":      {props: map[string]string{"shard_count": "many"}, wantErr: true},
		"shard count too high": {props: map[string]string{"shard_count": "51"}, wantErr: true},
		"bad bool":             {props: map[string]string{"wal_enabled": "maybe"}, wantErr: true},
		"bad timeout":          {props: map[string]string{"stop_timeout": "soon"}, wantErr: true},
		"unknown backend":      {props: map[string]string{"backend": "hbase"}, wantErr: true},
		"bigtable without ids": {props: map[string]string{"backend": "bigtable"}, wantErr: true},
		"pebble without dir": {
			props:   map[string]string{"backend": "pebble", "data_dir": ""},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := FromProperties("/home/.litetable", tc.props)
			if tc.wantErr {
				require.Error(t, err)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)

			want := Default("/home/.litetable")
			tc.want(want)
			assert.Equal(t, want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, configFileName)
	content := `# LiteTable configuration
backend = pebble

data_dir=/var/lib/litetable
not a property
shard_count = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"backend":     "pebble",
		"data_dir":    "/var/lib/litetable",
		"shard_count": "4",
	}, got)

	missing, err := ReadFile(filepath.Join(dir, "missing.conf"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	content := "backend=pebble\nshard_count=4\ndebug=true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0600))

	// the property map overrides the file and the environment overrides both
	t.Setenv("LITETABLE_SHARD_COUNT", "6")
	t.Setenv("LITETABLE_STOP_TIMEOUT", "3s")

	got, err := Load(dir, map[string]string{"shard_count": "5", "wal_enabled": "true"})
	require.NoError(t, err)

	assert.Equal(t, BackendPebble, got.Backend)
	assert.Equal(t, dir, got.DataDir)
	assert.Equal(t, 6, got.ShardCount)
	assert.True(t, got.WALEnabled)
	assert.True(t, got.Debug)
	assert.Equal(t, 3*time.Second, got.StopTimeout)
}

func TestDefaultPersists(t *testing.T) {
	got, err := Load(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, got.Backend)
	assert.True(t, got.WALEnabled)
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv("LITETABLE_SHARD_COUNT", "lots")
	_, err := Load(t.TempDir(), nil)
	require.Error(t, err)
}

func TestLoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName),
		[]byte("shard_count=lots\n"), 0600))
	_, err := Load(dir, nil)
	require.ErrorContains(t, err, configFileName)
}
