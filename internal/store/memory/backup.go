package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/litetable/litetable-kit/pkg/litetable"
	"github.com/rs/zerolog/log"
)

const (
	backupDirName    = ".table_backup"
	backupFileGlob   = "backup-*.db"
	backupVersion    = 1
	maxBackupLimit   = 3
	backupTempSuffix = ".tmp"
)

// backup is a full copy of the store. Sequence is the last WAL entry it contains; replay resumes
// after it.
type backup struct {
	Version  int           `json:"version"`
	Sequence uint64        `json:"seq"`
	Tables   []tableBackup `json:"tables"`
}

type tableBackup struct {
	Schema   litetable.TableSchema `json:"schema"`
	Disabled bool                  `json:"disabled,omitempty"`
	Rows     []litetable.Row       `json:"rows,omitempty"`
}

func (s *Store) backupDir() string {
	return filepath.Join(s.dataDir, backupDirName)
}

// snapshot copies every table. The caller holds s.mu.
func (s *Store) snapshot(seq uint64) *backup {
	b := &backup{Version: backupVersion, Sequence: seq, Tables: make([]tableBackup, 0, len(s.tables))}
	for _, t := range s.tables {
		tb := tableBackup{Schema: t.schema, Disabled: t.disabled.Load()}
		for _, sh := range t.shards {
			sh.mutex.RLock()
			sh.rows.Ascend(func(r *row) bool {
				tb.Rows = append(tb.Rows, r.snapshot())
				return true
			})
			sh.mutex.RUnlock()
		}
		b.Tables = append(b.Tables, tb)
	}
	sort.Slice(b.Tables, func(i, j int) bool {
		return b.Tables[i].Schema.Name < b.Tables[j].Schema.Name
	})
	return b
}

// saveBackup writes a new backup file. The file only appears under its final name once it is
// complete.
func (s *Store) saveBackup(data *backup) error {
	start := time.Now()
	dir := s.backupDir()
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	filename := filepath.Join(dir, fmt.Sprintf("backup-%d.db", start.UnixNano()))

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize backup: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "backup-*"+backupTempSuffix)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(dataBytes); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write backup file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync backup file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close backup file: %w", err)
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to publish backup file: %w", err)
	}

	log.Debug().Str("duration", time.Since(start).String()).Msgf("Backup saved to %s", filename)
	return nil
}

// loadFromLatestBackup restores tables from the newest backup and returns the WAL sequence it
// covers. It returns zero when there is no backup.
func (s *Store) loadFromLatestBackup() (uint64, error) {
	start := time.Now()
	latest, err := s.getLatestBackup()
	if err != nil {
		return 0, fmt.Errorf("failed to get latest backup: %w", err)
	}
	if latest == "" {
		log.Debug().Msg("No backups found, nothing to load")
		return 0, nil
	}

	dataBytes, err := os.ReadFile(latest)
	if err != nil {
		return 0, fmt.Errorf("failed to read backup %s: %w", latest, err)
	}

	var loaded backup
	if err = json.Unmarshal(dataBytes, &loaded); err != nil {
		return 0, fmt.Errorf("failed to parse backup %s: %w", latest, err)
	}
	if loaded.Version != backupVersion {
		return 0, fmt.Errorf("backup %s has unsupported version %d", latest, loaded.Version)
	}

	for _, tb := range loaded.Tables {
		if err = validateSchema(tb.Schema); err != nil {
			return 0, fmt.Errorf("backup %s: table %s: %w", latest, tb.Schema.Name, err)
		}
		t := newTable(tb.Schema, s.shardCount)
		t.disabled.Store(tb.Disabled)
		for _, r := range tb.Rows {
			t.restore(r)
		}
		s.tables[tb.Schema.Name] = t
	}

	log.Debug().
		Int("tables", len(loaded.Tables)).
		Uint64("seq", loaded.Sequence).
		Str("duration", time.Since(start).String()).
		Msg("Data loaded from backup")
	return loaded.Sequence, nil
}

// getLatestBackup returns the newest backup file, or an empty string when there is none.
func (s *Store) getLatestBackup() (string, error) {
	files, err := filepath.Glob(filepath.Join(s.backupDir(), backupFileGlob))
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", nil
	}

	latest := files[0]
	for _, file := range files {
		if file > latest {
			latest = file
		}
	}
	return latest, nil
}

// maintainBackupLimit prunes the oldest backups beyond the limit. File names carry the creation
// time so lexical order is chronological.
func (s *Store) maintainBackupLimit() {
	files, err := filepath.Glob(filepath.Join(s.backupDir(), backupFileGlob))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list backup files")
		return
	}
	if len(files) <= maxBackupLimit {
		return
	}

	sort.Strings(files)
	for i := 0; i < len(files)-maxBackupLimit; i++ {
		if err = os.Remove(files[i]); err != nil {
			log.Error().Err(err).Msgf("Failed to remove old backup %s", files[i])
		} else {
			log.Debug().Msgf("Pruned old backup: %s", files[i])
		}
	}
}
