package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the template a Notifier should render.
type Kind string

const (
	KindEmailVerification Kind = "email_verification"
)

// Message is one outbound notification.
type Message struct {
	ID          string
	Kind        Kind
	Recipient   string
	DisplayName string
	Token       string
	CreatedAt   time.Time
}

// NewMessage stamps a message with a fresh id and the current time.
func NewMessage(kind Kind, recipient, displayName, token string) Message {
	return Message{
		ID:          uuid.NewString(),
		Kind:        kind,
		Recipient:   recipient,
		DisplayName: displayName,
		Token:       token,
		CreatedAt:   time.Now().UTC(),
	}
}

// Notifier delivers a single message, e.g. over SMTP.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// LogNotifier writes messages to a structured log instead of sending them.
// It is meant for development setups without a mail relay.
type LogNotifier struct {
	logger  *slog.Logger
	baseURL string
}

// NewLogNotifier logs confirmation links rooted at baseURL.
func NewLogNotifier(logger *slog.Logger, baseURL string) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, baseURL: baseURL}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "notification",
		"id", msg.ID,
		"kind", string(msg.Kind),
		"recipient", msg.Recipient,
		"link", n.baseURL+"/confirm/"+msg.Token,
	)
	return nil
}
