package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iliyamo/seatly/internal/model"
)

// AuditLog appends one line per reservation lifecycle event to a file.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// NewAuditLog returns an audit log writing to path.  The file and its
// directory are created on first write.
func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

// Handle decodes a model.ReservationEvent and appends it.
func (a *AuditLog) Handle(_ context.Context, body []byte) error {
	var ev model.ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Kind == "" {
		return fmt.Errorf("event without kind")
	}
	return a.append(formatEvent(ev))
}

func (a *AuditLog) append(line string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if dir := filepath.Dir(a.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir logs: %w", err)
		}
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatEvent(ev model.ReservationEvent) string {
	r := ev.Reservation
	return fmt.Sprintf("[%s] %s | reservation_id=%s | route_id=%s | seat=%s | holder=%s | status=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Kind, r.ID, r.RouteID, r.SeatNumber, r.HolderID, r.Status)
}
