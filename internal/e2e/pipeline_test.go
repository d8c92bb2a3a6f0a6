// Package e2e exercises the full order-to-delivery pipeline with real
// components: script generator, workspace manager, audit sinks, SQLite
// ledger. Only the SMTP transport is faked.
package e2e

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanesguild/licensegw/internal/audit"
	"github.com/phanesguild/licensegw/internal/fulfill"
	"github.com/phanesguild/licensegw/internal/ledger"
	"github.com/phanesguild/licensegw/internal/license"
	"github.com/phanesguild/licensegw/internal/mail"
	"github.com/phanesguild/licensegw/internal/storage"
	"github.com/phanesguild/licensegw/internal/webhook"
	"github.com/phanesguild/licensegw/internal/workspace"
)

const webhookSecret = "e2e-webhook-secret"

const orderPayload = `{
	"id": 2001,
	"email": "buyer@example.com",
	"customer": {"first_name": "Ann", "last_name": "Lee"},
	"line_items": [
		{"name": "HakPak Professional", "quantity": 1},
		{"name": "Sticker Pack", "quantity": 3}
	]
}`

// fakeSender records outbound mail and can fail buyer deliveries.
type fakeSender struct {
	failBuyer bool
	messages  []mail.Message
}

func (f *fakeSender) Send(_ context.Context, msg mail.Message) error {
	if f.failBuyer && msg.To == "buyer@example.com" {
		return fmt.Errorf("smtp: mailbox unavailable")
	}
	f.messages = append(f.messages, msg)
	return nil
}

type env struct {
	handler      http.Handler
	sender       *fakeSender
	store        *ledger.Store
	ledgerPath   string
	workspaceDir string
}

func newEnv(t *testing.T, sender *fakeSender) *env {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	genPath := filepath.Join(dir, "generate_license.sh")
	require.NoError(t, os.WriteFile(genPath, []byte(`#!/bin/sh
printf 'HAKPAK-E2E-LICENSE' > buyer_example_com.lic
`), 0o755))

	db, err := storage.OpenSQLite(context.Background(), filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := ledger.NewStore(db)
	ledgerPath := filepath.Join(dir, "license_deliveries.log")
	recorder := audit.NewRecorder(logger,
		audit.NewOperationalLog(filepath.Join(dir, "license_delivery.log")),
		audit.NewLedgerFile(ledgerPath),
		ledger.NewSink(store),
	)

	workspaceDir := filepath.Join(dir, "workspaces")
	workspaces, err := workspace.NewManager(workspaceDir)
	require.NoError(t, err)

	gen := license.NewGenerator(genPath, 365, 30*time.Second)
	producer := license.NewProducer(gen, workspaces, logger)
	notifier := mail.NewNotifier(sender, "ops@phanesguild.com", 365, logger)
	processor := fulfill.NewProcessor(producer, notifier, recorder, logger)

	server := webhook.New(webhook.Config{
		Listen:       "127.0.0.1:0",
		Path:         "/webhook/orders",
		Secret:       webhookSecret,
		ProductMatch: "hakpak",
	}, processor, recorder, logger)

	return &env{
		handler:      server.Handler(),
		sender:       sender,
		store:        store,
		ledgerPath:   ledgerPath,
		workspaceDir: workspaceDir,
	}
}

func (e *env) post(body string) *httptest.ResponseRecorder {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(body))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/webhook/orders", strings.NewReader(body))
	req.Header.Set("X-Shopify-Hmac-Sha256", sig)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestPipeline_SuccessfulDelivery(t *testing.T) {
	e := newEnv(t, &fakeSender{})

	rec := e.post(orderPayload)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Licenses delivered successfully (1 items)", rec.Body.String())

	// Buyer email carries the artifact; operator gets the confirmation.
	require.Len(t, e.sender.messages, 2)
	buyerMsg := e.sender.messages[0]
	assert.Equal(t, "buyer@example.com", buyerMsg.To)
	assert.Contains(t, buyerMsg.Body, "HAKPAK-E2E-LICENSE")
	assert.Contains(t, buyerMsg.Body, "Ann Lee")
	assert.Equal(t, "ops@phanesguild.com", e.sender.messages[1].To)

	// The delivery landed in the SQLite ledger.
	entries, err := e.store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "buyer@example.com", entries[0].BuyerEmail)
	assert.Equal(t, "Ann Lee", entries[0].BuyerName)
	assert.Equal(t, "2001", entries[0].OrderID)

	// And in the ledger file.
	data, err := os.ReadFile(e.ledgerPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "License generated for: Ann Lee (buyer@example.com) - Order: 2001")

	// The request workspace is gone.
	wsEntries, err := os.ReadDir(e.workspaceDir)
	require.NoError(t, err)
	assert.Empty(t, wsEntries)
}

func TestPipeline_DeliveryFailureAlertsOperator(t *testing.T) {
	e := newEnv(t, &fakeSender{failBuyer: true})

	rec := e.post(orderPayload)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "License delivery failed", rec.Body.String())

	// Only the operator alert went out.
	require.Len(t, e.sender.messages, 1)
	alert := e.sender.messages[0]
	assert.Equal(t, "ops@phanesguild.com", alert.To)
	assert.Equal(t, "HakPak Email Delivery Failed", alert.Subject)

	// No ledger entry without a confirmed send.
	n, err := e.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = os.Stat(e.ledgerPath)
	assert.True(t, os.IsNotExist(err))
}

func TestPipeline_TamperedPayloadIsRejected(t *testing.T) {
	e := newEnv(t, &fakeSender{})

	// Sign one payload, send another.
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(orderPayload))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	tampered := strings.Replace(orderPayload, "buyer@example.com", "attacker@example.com", 1)
	req := httptest.NewRequest(http.MethodPost, "/webhook/orders", strings.NewReader(tampered))
	req.Header.Set("X-Shopify-Hmac-Sha256", sig)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", rec.Body.String())
	assert.Empty(t, e.sender.messages)
}

func TestPipeline_NonMatchingOrderIsAcknowledged(t *testing.T) {
	e := newEnv(t, &fakeSender{})

	body := `{"id": 2002, "email": "buyer@example.com", "line_items": [{"name": "Sticker Pack"}]}`
	rec := e.post(body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Not a HakPak order", rec.Body.String())
	assert.Empty(t, e.sender.messages)
}
