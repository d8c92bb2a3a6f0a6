// Package license produces license artifacts by invoking the external
// generator inside request-scoped workspaces.
package license

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phanesguild/licensegw/internal/workspace"
)

// Artifact is the opaque credential produced for one order line item. It is
// consumed exactly once by delivery; the backing file is already deleted by
// the time an Artifact exists.
type Artifact struct {
	Content []byte
	OrderID string
}

// Producer generates and retrieves license artifacts.
//
// Every Produce call runs in its own workspace directory, keyed by a fresh
// UUID, so concurrent requests for different buyers cannot cross-deliver.
type Producer struct {
	gen        *Generator
	workspaces *workspace.Manager
	logger     *slog.Logger
}

// NewProducer creates a Producer.
func NewProducer(gen *Generator, workspaces *workspace.Manager, logger *slog.Logger) *Producer {
	return &Producer{
		gen:        gen,
		workspaces: workspaces,
		logger:     logger,
	}
}

// Produce invokes the generator for one buyer and returns the artifact it
// wrote. The workspace is removed before returning, success or failure.
func (p *Producer) Produce(ctx context.Context, buyerName, buyerEmail, orderID string) (Artifact, error) {
	requestID := uuid.NewString()
	logger := p.logger.With("request_id", requestID, "order_id", orderID)

	ws, err := p.workspaces.Create(ctx, requestID)
	if err != nil {
		return Artifact{}, fmt.Errorf("create artifact workspace: %w", err)
	}
	defer func() {
		if err := p.workspaces.Remove(context.WithoutCancel(ctx), requestID); err != nil {
			logger.Error("failed to remove artifact workspace", "error", err)
		}
	}()

	logger.Info("generating license", "buyer", buyerEmail)

	res, err := p.gen.Run(ctx, ws.Dir, buyerName, buyerEmail, orderID, logger)
	if res.Stdout != "" {
		logger.Info("generator output", "stdout", res.Stdout)
	}
	if err != nil {
		if res.Stderr != "" {
			logger.Error("generator stderr", "stderr", res.Stderr)
		}
		return Artifact{}, fmt.Errorf("license generation: %w", err)
	}

	content, err := resolveArtifact(ws.Dir, buyerEmail)
	if err != nil {
		return Artifact{}, err
	}

	logger.Info("license artifact resolved", "bytes", len(content))
	return Artifact{Content: content, OrderID: orderID}, nil
}
