package audit

import (
	"fmt"
	"log/slog"
	"time"
)

// Recorder fans one event stream out to all configured sinks. Sink write
// failures are logged, never propagated: a broken audit surface must not
// take the pipeline down, but it is also never silent.
type Recorder struct {
	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder over the given sinks.
func NewRecorder(logger *slog.Logger, sinks ...Sink) *Recorder {
	return &Recorder{
		sinks:  sinks,
		logger: logger,
		now:    time.Now,
	}
}

// Event records one operational lifecycle event.
func (r *Recorder) Event(level Level, msg string) {
	r.write(Event{Level: level, Message: msg})
}

// Eventf records a formatted operational event.
func (r *Recorder) Eventf(level Level, format string, args ...any) {
	r.Event(level, fmt.Sprintf(format, args...))
}

// Delivery records one confirmed successful delivery. It reaches every sink,
// including the ledger surfaces that ignore plain events.
func (r *Recorder) Delivery(buyerEmail, buyerName, orderID string) {
	r.write(Event{
		Level:     LevelInfo,
		Message:   fmt.Sprintf("License generated for: %s (%s) - Order: %s", buyerName, buyerEmail, orderID),
		OrderID:   orderID,
		Buyer:     buyerEmail,
		BuyerName: buyerName,
		Delivered: true,
	})
}

func (r *Recorder) write(e Event) {
	e.Time = r.now()
	for _, s := range r.sinks {
		if err := s.Write(e); err != nil {
			r.logger.Error("audit sink write failed", "error", err)
		}
	}
}
