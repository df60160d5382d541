package mail

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of delivering them. It is the
// default when no SMTP host is configured, keeping local development working
// without a relay.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	slog.Info("mail (log sender)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}
