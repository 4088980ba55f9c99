// Package wal is an append-only JSON-lines log of table changes. The in-memory store writes every
// change here before applying it and replays the log on start.
package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/litetable/litetable-kit/pkg/litetable"
)

const (
	defaultWalDirectory = "wal"
	defaultWALFile      = "wal.log"
)

// Operation identifies the change an Entry records.
type Operation int

const (
	OperationPut Operation = iota + 1
	OperationCreateTable
	OperationDisableTable
	OperationDropTable
)

func (o Operation) String() string {
	switch o {
	case OperationPut:
		return "put"
	case OperationCreateTable:
		return "create_table"
	case OperationDisableTable:
		return "disable_table"
	case OperationDropTable:
		return "drop_table"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// Entry represents one logged change.
type Entry struct {
	// Sequence numbers increase by one per entry and survive truncation.
	Sequence  uint64                 `json:"seq"`
	Operation Operation              `json:"operation"`
	Table     string                 `json:"table"`
	Schema    *litetable.TableSchema `json:"schema,omitempty"`
	Cells     []litetable.Cell       `json:"cells,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type Manager struct {
	mu      sync.Mutex
	walFile *os.File
	path    string
	seq     uint64
}

type Config struct {
	// Path where the WAL directory will be saved
	Path string
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Path == "" {
		errGrp = append(errGrp, errors.New("wal path cannot be empty"))
	}
	return errors.Join(errGrp...)
}

func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	walPath := filepath.Join(cfg.Path, defaultWalDirectory, defaultWALFile)
	if err := os.MkdirAll(filepath.Dir(walPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	file, err := os.OpenFile(walPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	return &Manager{
		walFile: file,
		path:    walPath,
	}, nil
}

// Apply assigns the entry the next sequence number, appends it to the log and syncs it to
// disk. A change is durable once Apply returns.
func (m *Manager) Apply(e *Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.walFile == nil {
		return errors.New("wal is closed")
	}

	e.Sequence = m.seq + 1
	jsonData, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if _, err = m.walFile.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write to WAL: %w", err)
	}
	if err = m.walFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync WAL: %w", err)
	}
	m.seq = e.Sequence
	return nil
}

// Sequence returns the sequence number of the last entry written or loaded.
func (m *Manager) Sequence() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

// Truncate empties the log once its entries are persisted elsewhere. Numbering continues from
// the last entry.
func (m *Manager) Truncate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.walFile == nil {
		return errors.New("wal is closed")
	}
	if err := m.walFile.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate WAL: %w", err)
	}
	return m.walFile.Sync()
}

// Path returns the location of the WAL file.
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.walFile == nil {
		return nil
	}
	err := m.walFile.Close()
	m.walFile = nil
	return err
}
