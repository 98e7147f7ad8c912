package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/portal-admin/internal/circuitbreaker"
	"github.com/portal-admin/internal/logging"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/retry"
	"github.com/portal-admin/internal/worker"
)

// Submitter queues background work; satisfied by *worker.Pool
type Submitter interface {
	Submit(task worker.Task) error
}

// RecipientSource returns the current notification list
type RecipientSource interface {
	NotifyList(ctx context.Context) ([]string, error)
}

// Notifier turns workflow events into emails sent off the request path
type Notifier struct {
	mailer     Mailer
	pool       Submitter
	recipients RecipientSource
	breaker    *circuitbreaker.CircuitBreaker
	retry      *retry.Config
	logger     *logging.Logger
}

// NewNotifier creates a notifier. breaker and retryCfg may be nil for defaults.
func NewNotifier(mailer Mailer, pool Submitter, recipients RecipientSource, breaker *circuitbreaker.CircuitBreaker, retryCfg *retry.Config, logger *logging.Logger) *Notifier {
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("mailer"))
	}
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	// An open circuit is final for this message
	cfg := *retryCfg
	cfg.Retryable = func(err error) bool {
		return !errors.Is(err, circuitbreaker.ErrCircuitOpen) && !errors.Is(err, circuitbreaker.ErrTooManyRequests)
	}

	return &Notifier{
		mailer:     mailer,
		pool:       pool,
		recipients: recipients,
		breaker:    breaker,
		retry:      &cfg,
		logger:     logger.WithField("component", "notifier"),
	}
}

// ApplicationSubmitted announces a new application to the notify list
func (n *Notifier) ApplicationSubmitted(app *models.Application) {
	n.dispatch("notify.application_submitted", Message{
		Subject: fmt.Sprintf("New %s application #%d", app.Type, app.ID),
		Body: fmt.Sprintf("User %d submitted a %s application (#%d).\nFee applied: %s\nStatus: %s\n",
			app.UserID, app.Type, app.ID, app.FeeApplied.StringFixed(2), app.Status),
	})
}

// RechargeRequested announces a new recharge request
func (n *Notifier) RechargeRequested(req *models.RechargeRequest) {
	n.dispatch("notify.recharge_requested", Message{
		Subject: fmt.Sprintf("Recharge request #%d awaiting approval", req.ID),
		Body: fmt.Sprintf("User %d requested a recharge of %s via %s (transaction %s).\n",
			req.UserID, req.Amount.StringFixed(2), req.Type, req.TransactionID),
	})
}

// dispatch queues the message; recipients are resolved when the task runs
func (n *Notifier) dispatch(name string, msg Message) {
	err := n.pool.Submit(worker.Task{
		Name: name,
		Run: func(ctx context.Context) error {
			return n.deliver(ctx, msg)
		},
	})
	if err != nil {
		n.logger.WithField("task", name).WithError(err).Warn("notification dropped")
	}
}

func (n *Notifier) deliver(ctx context.Context, msg Message) error {
	to, err := n.recipients.NotifyList(ctx)
	if err != nil {
		return fmt.Errorf("load notify list: %w", err)
	}
	if len(to) == 0 {
		return nil
	}
	msg.To = to

	return retry.WithRetry(ctx, n.retry, func(ctx context.Context, attempt int) error {
		return n.breaker.Execute(ctx, func(ctx context.Context) error {
			return n.mailer.Send(ctx, msg)
		})
	})
}
