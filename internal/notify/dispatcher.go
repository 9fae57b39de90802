// Package notify decouples workflow state transitions from notification
// delivery. Workflows hand a request to the dispatcher and return immediately;
// a background worker persists the durable in-app row, pushes it over any live
// realtime channels, and delegates sms/email to channel collaborators.
// Delivery is at-most-once with no retry queue; failures are logged and
// dropped, never surfaced to the triggering request.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/foodbridge/foodbridge/internal/models"
	"github.com/foodbridge/foodbridge/internal/realtime"
	"github.com/foodbridge/foodbridge/pkg/logger"
	"github.com/foodbridge/foodbridge/pkg/mail"
	"github.com/foodbridge/foodbridge/pkg/metrics"
)

// Channel selects the delivery mechanism for a notification.
type Channel string

const (
	// ChannelApp persists a notification row and pushes it over live realtime
	// channels. It is the durable default.
	ChannelApp   Channel = "app"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

const (
	defaultQueueSize = 256
	deliveryTimeout  = 5 * time.Second
)

// Request describes one notification to deliver.
type Request struct {
	RecipientID string
	Type        models.NotificationType
	Title       string
	Message     string
	Data        map[string]any
	Channel     Channel
}

// SMSSender delivers a text message to a user. The boolean reports whether the
// message was actually handed off; an unconfigured sender returns false
// without error.
type SMSSender interface {
	Send(ctx context.Context, userID, message string) (bool, error)
}

// Option customises the dispatcher.
type Option func(*Dispatcher)

// WithMailer wires the email channel collaborator.
func WithMailer(m mail.Mailer) Option {
	return func(d *Dispatcher) { d.mailer = m }
}

// WithSMS wires the sms channel collaborator.
func WithSMS(s SMSSender) Option {
	return func(d *Dispatcher) { d.sms = s }
}

// WithQueueSize overrides the outbound queue capacity.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// Dispatcher owns the outbound notification queue.
type Dispatcher struct {
	db     *gorm.DB
	hub    *realtime.Hub
	mailer mail.Mailer
	sms    SMSSender

	queueSize int
	queue     chan Request
	pending   sync.WaitGroup
	worker    sync.WaitGroup

	mu     sync.Mutex
	closed bool

	log *zap.Logger
}

// NewDispatcher constructs the dispatcher and starts its delivery worker.
func NewDispatcher(db *gorm.DB, hub *realtime.Hub, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		db:        db,
		hub:       hub,
		queueSize: defaultQueueSize,
		log:       logger.WithModule("notify"),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.queue = make(chan Request, d.queueSize)
	d.worker.Add(1)
	go d.run()
	return d
}

// Notify enqueues a notification for delivery. It never blocks the caller:
// when the queue is full or the dispatcher is shut down the request is dropped
// and logged.
func (d *Dispatcher) Notify(req Request) {
	if req.RecipientID == "" {
		return
	}
	if req.Channel == "" {
		req.Channel = ChannelApp
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.log.Warn("dispatcher closed; dropping notification",
			zap.String("recipient_id", req.RecipientID))
		return
	}

	d.pending.Add(1)
	select {
	case d.queue <- req:
	default:
		d.pending.Done()
		metrics.NotificationsDispatched.WithLabelValues(string(req.Channel), "dropped").Inc()
		d.log.Warn("notification queue full; dropping",
			zap.String("recipient_id", req.RecipientID),
			zap.String("channel", string(req.Channel)))
	}
}

// Flush blocks until every enqueued notification has been processed.
func (d *Dispatcher) Flush() {
	d.pending.Wait()
}

// Close drains the queue and stops the worker. Safe to call once at shutdown.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.worker.Wait()
}

func (d *Dispatcher) run() {
	defer d.worker.Done()

	for req := range d.queue {
		d.deliver(req)
		d.pending.Done()
	}
}

func (d *Dispatcher) deliver(req Request) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	switch req.Channel {
	case ChannelSMS:
		d.deliverSMS(ctx, req)
	case ChannelEmail:
		d.deliverEmail(ctx, req)
	default:
		d.deliverApp(ctx, req)
	}
}

// deliverApp persists the durable notification row, then pushes it to any live
// channels. Persistence failure drops the realtime push as well so clients
// never see a notification that cannot be fetched later.
func (d *Dispatcher) deliverApp(ctx context.Context, req Request) {
	notification := models.Notification{
		RecipientID: req.RecipientID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
	}

	if req.Data != nil {
		if encoded, err := json.Marshal(req.Data); err == nil {
			notification.Data = datatypes.JSON(encoded)
		}
	}

	if err := d.db.WithContext(ctx).Create(&notification).Error; err != nil {
		metrics.NotificationsDispatched.WithLabelValues(string(ChannelApp), "error").Inc()
		d.log.Warn("persist notification failed",
			zap.String("recipient_id", req.RecipientID), zap.Error(err))
		return
	}

	if d.hub != nil {
		d.hub.SendTo(req.RecipientID, realtime.Message{
			Type:    "notification",
			Content: notification,
		})
	}
	metrics.NotificationsDispatched.WithLabelValues(string(ChannelApp), "delivered").Inc()
}

func (d *Dispatcher) deliverSMS(ctx context.Context, req Request) {
	if d.sms == nil {
		metrics.NotificationsDispatched.WithLabelValues(string(ChannelSMS), "unconfigured").Inc()
		d.log.Debug("sms channel unconfigured; dropping",
			zap.String("recipient_id", req.RecipientID))
		return
	}

	delivered, err := d.sms.Send(ctx, req.RecipientID, req.Message)
	switch {
	case err != nil:
		metrics.NotificationsDispatched.WithLabelValues(string(ChannelSMS), "error").Inc()
		d.log.Warn("sms delivery failed",
			zap.String("recipient_id", req.RecipientID), zap.Error(err))
	case !delivered:
		metrics.NotificationsDispatched.WithLabelValues(string(ChannelSMS), "skipped").Inc()
	default:
		metrics.NotificationsDispatched.WithLabelValues(string(ChannelSMS), "delivered").Inc()
	}
}

func (d *Dispatcher) deliverEmail(ctx context.Context, req Request) {
	if d.mailer == nil {
		metrics.NotificationsDispatched.WithLabelValues(string(ChannelEmail), "unconfigured").Inc()
		d.log.Debug("email channel unconfigured; dropping",
			zap.String("recipient_id", req.RecipientID))
		return
	}

	var user models.User
	if err := d.db.WithContext(ctx).Select("email").First(&user, "id = ?", req.RecipientID).Error; err != nil {
		metrics.NotificationsDispatched.WithLabelValues(string(ChannelEmail), "error").Inc()
		d.log.Warn("email recipient lookup failed",
			zap.String("recipient_id", req.RecipientID), zap.Error(err))
		return
	}

	err := d.mailer.Send(ctx, mail.Message{
		To:      []string{user.Email},
		Subject: req.Title,
		Body:    req.Message,
	})
	switch {
	case err == mail.ErrSMTPDisabled:
		metrics.NotificationsDispatched.WithLabelValues(string(ChannelEmail), "unconfigured").Inc()
	case err != nil:
		metrics.NotificationsDispatched.WithLabelValues(string(ChannelEmail), "error").Inc()
		d.log.Warn("email delivery failed",
			zap.String("recipient_id", req.RecipientID), zap.Error(err))
	default:
		metrics.NotificationsDispatched.WithLabelValues(string(ChannelEmail), "delivered").Inc()
	}
}
