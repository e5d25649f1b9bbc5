package providers

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"iotmon/internal/models"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email forwards alerts over SMTP with plain auth.
type Email struct {
	addr       string
	auth       smtp.Auth
	from       string
	recipients []string
	send       sendMailFunc
}

func NewEmail(server string, port int, username, password string, recipients []string) (*Email, error) {
	if server == "" || port == 0 || username == "" || password == "" {
		return nil, fmt.Errorf("missing Email configuration: SMTPServer, SMTPPort, Username, or Password is empty")
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no email recipients configured")
	}
	return &Email{
		addr:       fmt.Sprintf("%s:%d", server, port),
		auth:       smtp.PlainAuth("", username, password, server),
		from:       username,
		recipients: recipients,
		send:       smtp.SendMail,
	}, nil
}

// Forward mails the alert to every recipient. smtp.SendMail has no context,
// so ctx is only checked before sending.
func (e *Email) Forward(ctx context.Context, task models.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := EmailMessage(e.from, e.recipients, task)
	if err := e.send(e.addr, e.auth, e.from, e.recipients, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", strings.Join(e.recipients, ","), err)
	}
	return nil
}

// EmailMessage builds the RFC 5322 message for an alert.
func EmailMessage(from string, to []string, task models.Task) []byte {
	a := task.Alert
	unit := models.MetricUnit(a.Metric)
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", headerValue(from))
	fmt.Fprintf(&sb, "To: %s\r\n", headerValue(strings.Join(to, ", ")))
	fmt.Fprintf(&sb, "Subject: %s\r\n", headerValue(task.Subject()))
	fmt.Fprintf(&sb, "Date: %s\r\n", task.ReceivedAt.Format(time.RFC1123Z))
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&sb, "%s\r\n\r\n", a.Message)
	if a.DeviceName != "" {
		fmt.Fprintf(&sb, "Device: %s\r\n", headerValue(a.DeviceName))
	}
	if a.Metric != "" {
		fmt.Fprintf(&sb, "Metric: %s\r\n", models.MetricLabel(a.Metric))
	}
	fmt.Fprintf(&sb, "Value: %.2f%s\r\nThreshold: %.2f%s\r\n", a.Value, unit, a.Threshold, unit)
	return []byte(sb.String())
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// headerValue folds line breaks so a value stays on its header line.
func headerValue(v string) string {
	return headerBreaks.Replace(v)
}
