package accounts

import (
	"context"
)

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, msg MailMessage) error

// Send implements Notifier.
func (f NotifierFunc) Send(ctx context.Context, msg MailMessage) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

// NoopNotifier discards every message. Useful in tests and for
// deployments without an outbound mail channel.
type NoopNotifier struct{}

// Send implements Notifier.
func (NoopNotifier) Send(context.Context, MailMessage) error {
	return nil
}

// LogNotifier writes outbound messages to the logger instead of
// delivering them. Confirmation links end up in the process log, which
// is how local development environments complete the signup flow.
type LogNotifier struct {
	logger Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger Logger) *LogNotifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogNotifier{logger: logger}
}

// Send implements Notifier.
func (n *LogNotifier) Send(_ context.Context, msg MailMessage) error {
	n.logger.Info("mail to=%s subject=%q body=%s", msg.To, msg.Subject, msg.HTML)
	return nil
}

// Deliver sends a message honoring the delivery mode. In await mode the
// caller sees the delivery error, which inside a transaction rolls the
// operation back. In fire and forget mode delivery runs detached from
// the request and failures are only logged.
func Deliver(ctx context.Context, notifier Notifier, mode DeliveryMode, logger Logger, msg MailMessage) error {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if logger == nil {
		logger = defLogger{}
	}

	if mode == DeliveryAwait {
		return notifier.Send(ctx, msg)
	}

	// detach from the request context so a client disconnect does not
	// cancel delivery mid flight
	go func(ctx context.Context) {
		if err := notifier.Send(ctx, msg); err != nil {
			logger.Error("mail delivery failed to=%s subject=%q: %v", msg.To, msg.Subject, err)
		}
	}(context.WithoutCancel(ctx))

	return nil
}
