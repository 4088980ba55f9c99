package wal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// maxEntrySize bounds a single log line; large batches are written as one line.
const maxEntrySize = 64 << 20

// Load replays the entries numbered above after, in write order. Malformed lines are skipped.
// Replay stops at the first error returned by fn. New entries are numbered after both after and
// the last entry in the log.
func (m *Manager) Load(after uint64, fn func(e *Entry) error) error {
	m.mu.Lock()
	m.seq = max(m.seq, after)
	m.mu.Unlock()

	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var (
		line     int
		replayed int
	)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEntrySize)
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var entry Entry
		if err = json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping malformed WAL entry")
			continue
		}

		m.mu.Lock()
		m.seq = max(m.seq, entry.Sequence)
		m.mu.Unlock()
		if entry.Sequence <= after {
			continue
		}

		switch entry.Operation {
		case OperationPut, OperationCreateTable, OperationDisableTable, OperationDropTable:
		default:
			log.Warn().Int("line", line).Msgf("unknown operation type: %d, skipping",
				entry.Operation)
			continue
		}

		if err = fn(&entry); err != nil {
			return fmt.Errorf("replay %s at line %d: %w", entry.Operation, line, err)
		}
		replayed++
	}
	if err = scanner.Err(); err != nil {
		return err
	}

	log.Debug().Int("entries", replayed).Str("path", m.path).Msg("WAL replayed")
	return nil
}
