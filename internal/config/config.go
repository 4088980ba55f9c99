// Package config resolves which store backend to use and how to reach it.
//
// Values are layered, each layer overriding the one before:
//
//  1. defaults
//  2. the litetable.conf file in the LiteTable directory (key=value lines, # comments)
//  3. a property map supplied by the caller
//  4. LITETABLE_* environment variables
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

const (
	configFileName = "litetable.conf"
	litetableDir   = ".litetable"
	envPrefix      = "LITETABLE_"

	defaultShardCount  = 2
	defaultStopTimeout = 5 * time.Second
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendPebble   = "pebble"
	BackendBigtable = "bigtable"
)

type Config struct {
	Backend    string `env:"BACKEND"`
	DataDir    string `env:"DATA_DIR"`
	ShardCount int    `env:"SHARD_COUNT"`
	WALEnabled bool   `env:"WAL_ENABLED"`

	BigtableProject  string `env:"BIGTABLE_PROJECT"`
	BigtableInstance string `env:"BIGTABLE_INSTANCE"`
	BigtableEmulator string `env:"BIGTABLE_EMULATOR_HOST"`

	Debug       bool          `env:"DEBUG"`
	StopTimeout time.Duration `env:"STOP_TIMEOUT"`
}

// GetLitetableDir returns the path to the LiteTable directory in the user's home directory.
func GetLitetableDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, litetableDir), nil
}

// Default returns the configuration used when nothing is set: an in-memory store whose
// write-ahead log and backups live under dir, so data survives between runs.
func Default(dir string) *Config {
	return &Config{
		Backend:     BackendMemory,
		DataDir:     dir,
		WALEnabled:  true,
		ShardCount:  defaultShardCount,
		StopTimeout: defaultStopTimeout,
	}
}

// FromProperties returns the defaults mutated by props, without reading files or the
// environment.
func FromProperties(dir string, props map[string]string) (*Config, error) {
	cfg := Default(dir)
	if err := cfg.Apply(props); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load resolves the full configuration. An empty dir means the LiteTable directory; the
// config file in it is optional.
func Load(dir string, props map[string]string) (*Config, error) {
	if dir == "" {
		var err error
		if dir, err = GetLitetableDir(); err != nil {
			return nil, err
		}
	}

	cfg := Default(dir)

	fileProps, err := ReadFile(filepath.Join(dir, configFileName))
	if err != nil {
		return nil, err
	}
	if err = cfg.Apply(fileProps); err != nil {
		return nil, fmt.Errorf("%s: %w", configFileName, err)
	}
	if err = cfg.Apply(props); err != nil {
		return nil, err
	}

	if err = env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile parses a key=value config file. A missing file yields no properties.
func ReadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	props := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		props[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return props, nil
}

// Apply sets every known property. Unknown keys are ignored.
func (c *Config) Apply(props map[string]string) error {
	var (
		errGrp []error
		err    error
	)
	for key, value := range props {
		switch key {
		case "backend":
			c.Backend = value
		case "data_dir":
			c.DataDir = value
		case "shard_count":
			if c.ShardCount, err = strconv.Atoi(value); err != nil {
				errGrp = append(errGrp, fmt.Errorf("invalid shard count value: %w", err))
			}
		case "wal_enabled":
			if c.WALEnabled, err = strconv.ParseBool(value); err != nil {
				errGrp = append(errGrp, fmt.Errorf("invalid wal enabled value: %w", err))
			}
		case "bigtable_project":
			c.BigtableProject = value
		case "bigtable_instance":
			c.BigtableInstance = value
		case "bigtable_emulator_host":
			c.BigtableEmulator = value
		case "debug":
			c.Debug = value == "true"
		case "stop_timeout":
			if c.StopTimeout, err = parseTimeout(value); err != nil {
				errGrp = append(errGrp, fmt.Errorf("invalid stop timeout value: %w", err))
			}
		default:
			log.Debug().Str("key", key).Msg("ignoring unknown config property")
		}
	}
	return errors.Join(errGrp...)
}

// parseTimeout accepts a duration ("1m30s") or whole seconds.
func parseTimeout(value string) (time.Duration, error) {
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(value)
}

func (c *Config) Validate() error {
	var errGrp []error
	switch c.Backend {
	case BackendMemory:
		if c.WALEnabled && c.DataDir == "" {
			errGrp = append(errGrp, errors.New("data_dir is required when wal_enabled is set"))
		}
	case BackendPebble:
		if c.DataDir == "" {
			errGrp = append(errGrp, errors.New("data_dir is required for the pebble backend"))
		}
	case BackendBigtable:
		if c.BigtableProject == "" {
			errGrp = append(errGrp, errors.New("bigtable_project is required"))
		}
		if c.BigtableInstance == "" {
			errGrp = append(errGrp, errors.New("bigtable_instance is required"))
		}
	default:
		errGrp = append(errGrp, fmt.Errorf("unknown backend %q", c.Backend))
	}

	if c.ShardCount < 1 || c.ShardCount > 50 {
		errGrp = append(errGrp, errors.New("shard count must be between 1 and 50"))
	}
	if c.StopTimeout <= 0 {
		errGrp = append(errGrp, errors.New("stop timeout must be positive"))
	}
	return errors.Join(errGrp...)
}
