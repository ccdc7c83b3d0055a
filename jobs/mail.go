package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault carries scheduled scans and anything latency-sensitive.
	QueueDefault = "default"
	// QueueMail carries outbound notifications; it drains after QueueDefault.
	QueueMail = "mail"

	// TaskTypeSendEmail delivers one notification email.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload is the body of a TaskTypeSendEmail task.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask serializes payload into a queued email task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, body, asynq.Queue(QueueMail)), nil
}

// Mailer handles TaskTypeSendEmail tasks.
type Mailer struct {
	logger *slog.Logger
}

func NewMailer(logger *slog.Logger) *Mailer {
	return &Mailer{logger: logger}
}

// Handle logs the outbound message. Real SMTP delivery slots in here once an
// outbound relay exists; the task shape does not change.
func (m *Mailer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	m.logger.Info("mail: send", "to", payload.To, "subject", payload.Subject)
	return nil
}
