package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	gomail "gopkg.in/mail.v2"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/config"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/metrics"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
)

// Message is one outgoing email. HTML is optional.
type Message struct {
	To       string
	Subject  string
	Text     string
	HTML     string
	Template string
}

// Sender delivers mail.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var ErrInvalidMessage = errors.New("invalid mail message")

// New returns an SMTP sender when a host is configured and a log sender otherwise.
func New(cfg config.MailConfig) Sender {
	if strings.TrimSpace(cfg.Host) == "" {
		return NewLogSender()
	}
	return NewSMTPSender(cfg)
}

// Deliver sends msg through s and records the outcome.
func Deliver(ctx context.Context, s Sender, msg Message) error {
	if s == nil {
		return errors.New("mail sender not configured")
	}
	err := s.Send(ctx, msg)
	metrics.IncMailSent(msg.Template, err)
	if err != nil {
		telemetry.Error("mail.send.failed", map[string]any{
			"to":       msg.To,
			"template": msg.Template,
			"error":    err.Error(),
		})
	}
	return err
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	port := cfg.Port
	if port <= 0 {
		port = 587
	}
	d := gomail.NewDialer(cfg.Host, port, cfg.User, cfg.Password)
	d.StartTLSPolicy = gomail.OpportunisticStartTLS
	from := cfg.FromAddress
	if from == "" {
		from = cfg.User
	}
	return &SMTPSender{dialer: d, from: from, fromName: cfg.FromName}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender logs messages and keeps them for inspection.
type LogSender struct {
	mu   sync.Mutex
	sent []Message
}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	telemetry.Info("mail.log", map[string]any{
		"to":       msg.To,
		"subject":  msg.Subject,
		"template": msg.Template,
		"body":     msg.Text,
	})
	return nil
}

// Sent returns every message sent so far.
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}

// Last returns the most recent message sent to the address.
func (s *LogSender) Last(to string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if strings.EqualFold(s.sent[i].To, to) {
			return s.sent[i], true
		}
	}
	return Message{}, false
}

func validate(msg Message) error {
	if strings.TrimSpace(msg.To) == "" || strings.TrimSpace(msg.Subject) == "" {
		return ErrInvalidMessage
	}
	return nil
}

var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*LogSender)(nil)
)
