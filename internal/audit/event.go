// Package audit records the pipeline's durable trail: one event stream fed
// into an operational log and a delivery ledger.
package audit

import "time"

// Level is the severity of an audit event.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Event is one lifecycle record. Delivered marks confirmed deliveries, the
// only events the ledger sinks keep.
type Event struct {
	Time      time.Time
	Level     Level
	Message   string
	OrderID   string
	Buyer     string
	BuyerName string
	Delivered bool
}

// Sink consumes audit events. Implementations decide which events they keep.
type Sink interface {
	Write(e Event) error
}
