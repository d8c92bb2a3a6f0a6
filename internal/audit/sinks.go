package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const timeLayout = "2006-01-02 15:04:05"

// FileSink appends human-readable lines to a file. Not machine-parsed by the
// system itself.
type FileSink struct {
	path string
	mu   sync.Mutex

	// deliveriesOnly restricts the sink to confirmed-delivery events.
	deliveriesOnly bool
}

// NewOperationalLog creates the sink for the full operational log.
func NewOperationalLog(path string) *FileSink {
	return &FileSink{path: path}
}

// NewLedgerFile creates the sink for the delivery ledger: one line per
// confirmed delivery, for business reconciliation.
func NewLedgerFile(path string) *FileSink {
	return &FileSink{path: path, deliveriesOnly: true}
}

// Write appends one line for the event.
func (s *FileSink) Write(e Event) error {
	if s.deliveriesOnly && !e.Delivered {
		return nil
	}

	var line string
	if s.deliveriesOnly {
		line = fmt.Sprintf("%s - %s\n", e.Time.Format(timeLayout), e.Message)
	} else {
		line = fmt.Sprintf("[%s] [%s] %s\n", e.Time.Format(timeLayout), e.Level, e.Message)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create audit directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append audit line: %w", err)
	}
	return nil
}
