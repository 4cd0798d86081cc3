package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keighl/postmark"
)

// Sender delivers a rendered notification to a recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// PostmarkSender sends email through the Postmark API.
type PostmarkSender struct {
	client *postmark.Client
	from   string
}

// NewPostmarkSender creates a sender using the given server token and from
// address.
func NewPostmarkSender(serverToken, from string) *PostmarkSender {
	return &PostmarkSender{
		client: postmark.NewClient(serverToken, ""),
		from:   from,
	}
}

func (s *PostmarkSender) Send(_ context.Context, to, subject, htmlBody string) error {
	_, err := s.client.SendEmail(postmark.Email{
		From:     s.from,
		To:       to,
		Subject:  subject,
		HtmlBody: htmlBody,
	})
	if err != nil {
		return fmt.Errorf("send email via postmark: %w", err)
	}
	return nil
}

// LogSender writes notifications to the log instead of delivering them. It is
// the fallback when no Postmark token is configured, for local development.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, _ string) error {
	s.logger.InfoContext(ctx, "notification (log only)",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}
