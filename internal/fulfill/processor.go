// Package fulfill orchestrates license generation and delivery for the
// matched line items of one order.
package fulfill

import (
	"context"
	"log/slog"

	"github.com/phanesguild/licensegw/internal/audit"
	"github.com/phanesguild/licensegw/internal/license"
	"github.com/phanesguild/licensegw/internal/order"
)

// ArtifactProducer generates and retrieves one license artifact.
type ArtifactProducer interface {
	Produce(ctx context.Context, buyerName, buyerEmail, orderID string) (license.Artifact, error)
}

// Deliverer sends artifacts to buyers and alerts to the operator.
type Deliverer interface {
	DeliverLicense(ctx context.Context, buyerEmail, buyerName string, licenseContent []byte, orderID string) error
	AlertOperator(ctx context.Context, subject, buyerName, buyerEmail, orderID string) error
}

// Result aggregates per-item outcomes for one order.
type Result struct {
	Attempted int
	Delivered int
}

// Processor runs the per-item pipeline: produce artifact, deliver, record.
type Processor struct {
	producer ArtifactProducer
	notifier Deliverer
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(producer ArtifactProducer, notifier Deliverer, recorder *audit.Recorder, logger *slog.Logger) *Processor {
	return &Processor{
		producer: producer,
		notifier: notifier,
		recorder: recorder,
		logger:   logger,
	}
}

// Process fulfills the given matched line items sequentially, in payload
// order. Failures are isolated per item: generation or delivery failure for
// one item records an ERROR event, alerts the operator, and moves on.
func (p *Processor) Process(ctx context.Context, o *order.Order, items []order.LineItem) Result {
	res := Result{Attempted: len(items)}

	for _, item := range items {
		p.recorder.Eventf(audit.LevelInfo, "Generating license for item: %s", item.Name)

		artifact, err := p.producer.Produce(ctx, o.BuyerName, o.Email, o.ID)
		if err != nil {
			p.logger.Error("license generation failed", "order_id", o.ID, "error", err)
			p.recorder.Eventf(audit.LevelError, "License generation failed for order %s", o.ID)
			p.alert(ctx, "HakPak License Generation Failed", o)
			continue
		}

		if err := p.notifier.DeliverLicense(ctx, o.Email, o.BuyerName, artifact.Content, o.ID); err != nil {
			p.logger.Error("license delivery failed", "order_id", o.ID, "error", err)
			p.recorder.Eventf(audit.LevelError, "Email delivery failed for order %s", o.ID)
			p.alert(ctx, "HakPak Email Delivery Failed", o)
			continue
		}

		p.recorder.Delivery(o.Email, o.BuyerName, o.ID)
		p.recorder.Eventf(audit.LevelInfo, "License delivered successfully for item: %s", item.Name)
		res.Delivered++
	}

	return res
}

// alert notifies the operator about a terminal per-item failure. An alert
// failure is itself recorded; nothing is swallowed.
func (p *Processor) alert(ctx context.Context, subject string, o *order.Order) {
	if err := p.notifier.AlertOperator(ctx, subject, o.BuyerName, o.Email, o.ID); err != nil {
		p.logger.Error("operator alert failed", "order_id", o.ID, "error", err)
		p.recorder.Eventf(audit.LevelError, "Operator alert failed for order %s", o.ID)
	}
}
