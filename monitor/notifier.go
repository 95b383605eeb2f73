package monitor

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Alert struct {
	State        AlertState
	DownloadMbps float64
	UploadMbps   float64
	Threshold    float64
	At           time.Time
}

func (a *Alert) Message() string {
	return fmt.Sprintf("Alert! High network usage detected. Download: %.2f Mbps, Upload: %.2f Mbps", a.DownloadMbps, a.UploadMbps)
}

type Notifier interface {
	Notify(ctx context.Context, alert *Alert) error
}

// ConsoleNotifier prints the alert notice.
type ConsoleNotifier struct {
	Printer *log.Logger
}

func (n *ConsoleNotifier) Notify(ctx context.Context, alert *Alert) error {
	n.Printer.Println(alert.Message())
	return nil
}

type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailNotifier mails each alert to the configured recipients.
type EmailNotifier struct {
	settings SMTPSettings
	auth     smtp.Auth
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotifier(settings SMTPSettings) *EmailNotifier {
	var auth smtp.Auth
	if settings.Username != "" {
		// PlainAuth will not send credentials until the server identifies itself as a trusted one.
		auth = smtp.PlainAuth("", settings.Username, settings.Password, settings.Host)
	}

	return &EmailNotifier{
		settings: settings,
		auth:     auth,
		send:     smtp.SendMail,
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, alert *Alert) error {
	addr := fmt.Sprintf("%s:%d", n.settings.Host, n.settings.Port)
	subject := fmt.Sprintf("Network alert: %s", alert.State)

	msg := []byte("To: " + strings.Join(n.settings.To, ", ") + "\r\n" +
		"From: " + n.settings.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		alert.Message() + "\r\n" +
		fmt.Sprintf("Threshold: %.2f Mbps\r\nAt: %s\r\n", alert.Threshold, alert.At.Format(TimestampLayout)))

	if err := n.send(addr, n.auth, n.settings.From, n.settings.To, msg); err != nil {
		return errors.Wrap(err, "failed to send alert email")
	}

	return nil
}
