// Package ledger appends immutable audit records for completed trades to an
// external transparency log. Delivery is best effort: callers log failures and
// carry on, and a ledger outage must never fail the triggering trade
// transition.
package ledger

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/foodbridge/foodbridge/pkg/logger"
)

// Record is a single audit entry.
type Record struct {
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Ledger appends audit records to an external transparency log.
type Ledger interface {
	LogTransaction(ctx context.Context, kind string, payload map[string]any) error
}

// NopLedger satisfies Ledger without an external backend. Records are logged
// locally so completed trades stay observable in development setups.
type NopLedger struct {
	log *zap.Logger
}

// NewNopLedger constructs the logging-only ledger.
func NewNopLedger() *NopLedger {
	return &NopLedger{log: logger.WithModule("ledger")}
}

// LogTransaction writes the record to the application log and reports success.
func (l *NopLedger) LogTransaction(ctx context.Context, kind string, payload map[string]any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	l.log.Info("audit record",
		zap.String("kind", kind),
		zap.ByteString("payload", encoded),
	)
	return nil
}
