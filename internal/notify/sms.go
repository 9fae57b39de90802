package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/foodbridge/foodbridge/pkg/logger"
)

// TwilioConfig carries the credentials for the SMS channel.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

func (c TwilioConfig) configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

// TwilioSMS is the SMS channel collaborator. The actual carrier integration is
// a placeholder: with credentials present the message is accepted and logged,
// without them Send reports not-delivered so the dispatcher can drop quietly.
type TwilioSMS struct {
	cfg TwilioConfig
	log *zap.Logger
}

// NewTwilioSMS constructs the SMS sender.
func NewTwilioSMS(cfg TwilioConfig) *TwilioSMS {
	return &TwilioSMS{cfg: cfg, log: logger.WithModule("sms")}
}

// Send hands the message to the carrier. Unconfigured credentials yield
// (false, nil) rather than an error, mirroring fire-and-forget semantics.
func (s *TwilioSMS) Send(ctx context.Context, userID, message string) (bool, error) {
	if !s.cfg.configured() {
		return false, nil
	}

	s.log.Info("sms accepted",
		zap.String("user_id", userID),
		zap.Int("length", len(message)),
	)
	return true, nil
}
