package audit

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	events []Event
	err    error
}

func (c *captureSink) Write(e Event) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, e)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fixedClock() time.Time {
	return time.Date(2026, time.September, 1, 10, 30, 0, 0, time.UTC)
}

func TestRecorder_EventReachesAllSinks(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	r := NewRecorder(testLogger(), a, b)
	r.now = fixedClock

	r.Eventf(LevelWarn, "License generation failed for order %s", "1001")

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, LevelWarn, a.events[0].Level)
	assert.Equal(t, "License generation failed for order 1001", a.events[0].Message)
	assert.Equal(t, fixedClock(), a.events[0].Time)
	assert.False(t, a.events[0].Delivered)
}

func TestRecorder_DeliveryCarriesOrderDetails(t *testing.T) {
	sink := &captureSink{}
	r := NewRecorder(testLogger(), sink)
	r.now = fixedClock

	r.Delivery("buyer@example.com", "Ann Lee", "1001")

	require.Len(t, sink.events, 1)
	e := sink.events[0]
	assert.True(t, e.Delivered)
	assert.Equal(t, "buyer@example.com", e.Buyer)
	assert.Equal(t, "Ann Lee", e.BuyerName)
	assert.Equal(t, "1001", e.OrderID)
	assert.Equal(t, "License generated for: Ann Lee (buyer@example.com) - Order: 1001", e.Message)
}

func TestRecorder_SinkFailureDoesNotStopOtherSinks(t *testing.T) {
	broken := &captureSink{err: errors.New("disk full")}
	healthy := &captureSink{}
	r := NewRecorder(testLogger(), broken, healthy)

	r.Event(LevelInfo, "Processing order")

	assert.Len(t, healthy.events, 1, "later sinks must still be written")
}

func TestOperationalLog_LineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "license.log")
	sink := NewOperationalLog(path)

	err := sink.Write(Event{Time: fixedClock(), Level: LevelError, Message: "Email delivery failed for order 1001"})
	require.NoError(t, err)
	err = sink.Write(Event{Time: fixedClock(), Level: LevelInfo, Message: "Webhook received", Delivered: false})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2026-09-01 10:30:00] [ERROR] Email delivery failed for order 1001", lines[0])
	assert.Equal(t, "[2026-09-01 10:30:00] [INFO] Webhook received", lines[1])
}

func TestLedgerFile_KeepsOnlyDeliveries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ledger.log")
	sink := NewLedgerFile(path)

	// Plain events never touch the ledger, not even the file itself.
	require.NoError(t, sink.Write(Event{Time: fixedClock(), Level: LevelInfo, Message: "noise"}))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "ledger file must not be created for non-delivery events")

	require.NoError(t, sink.Write(Event{
		Time:      fixedClock(),
		Level:     LevelInfo,
		Message:   "License generated for: Ann Lee (buyer@example.com) - Order: 1001",
		Delivered: true,
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01 10:30:00 - License generated for: Ann Lee (buyer@example.com) - Order: 1001\n", string(data))
}
