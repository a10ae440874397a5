// Package mail implements the core.Notifier port over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/keralabs/passway/core"
)

// Config holds the SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// TLS selects the transport security: "starttls" (default),
	// "ssl" for implicit TLS, or "none".
	TLS string
}

// Notifier sends account emails through an SMTP server.
type Notifier struct {
	config Config
}

var _ core.Notifier = (*Notifier)(nil)

func New(config Config) (*Notifier, error) {
	if config.Host == "" {
		return nil, errors.New("mail: host is required")
	}
	if config.From == "" {
		return nil, errors.New("mail: from address is required")
	}
	if config.Port == 0 {
		config.Port = 587
	}
	return &Notifier{config: config}, nil
}

func (n *Notifier) SendVerificationEmail(ctx context.Context, user *core.User, link string) error {
	subject := "Verify your email address"
	body := fmt.Sprintf(
		"Hello %s,\n\nPlease verify your email address by opening the link below:\n\n%s\n\nIf you did not create an account, no further action is required.\n",
		user.Name, link)

	return n.send(ctx, user.Email, subject, body)
}

func (n *Notifier) send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if n.config.FromName != "" {
		if err := msg.FromFormat(n.config.FromName, n.config.From); err != nil {
			return fmt.Errorf("set from: %w", err)
		}
	} else {
		if err := msg.From(n.config.From); err != nil {
			return fmt.Errorf("set from: %w", err)
		}
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	opts := []gomail.Option{gomail.WithPort(n.config.Port)}
	switch n.config.TLS {
	case "ssl":
		opts = append(opts, gomail.WithSSL())
	case "none":
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	if n.config.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(n.config.Username),
			gomail.WithPassword(n.config.Password))
	}

	client, err := gomail.NewClient(n.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
