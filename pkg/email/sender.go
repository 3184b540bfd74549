package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/helpnet/helpnet-backend/pkg/config"
	"github.com/helpnet/helpnet-backend/pkg/logger"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sender struct {
	cfg      config.EmailConfig
	logg     *logger.Logger
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSender builds the SMTP email sender. Delivery is gated on config; while
// disabled every message is logged instead of sent.
func NewSender(cfg config.EmailConfig, logg *logger.Logger) (Sender, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if cfg.Enabled && cfg.SMTPHost == "" {
		return nil, errors.New("smtp host required when email delivery is enabled")
	}
	return &sender{cfg: cfg, logg: logg, sendMail: smtp.SendMail}, nil
}

func (s *sender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("recipient required")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"from":    s.cfg.DefaultFrom,
		"to":      msg.To,
		"subject": msg.Subject,
	})
	if !s.cfg.Enabled {
		s.logg.Info(logCtx, "email delivery disabled; message logged")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.sendMail(addr, auth, s.cfg.DefaultFrom, []string{msg.To}, compose(s.cfg.DefaultFrom, msg)); err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	s.logg.Info(logCtx, "email dispatched")
	return nil
}

func compose(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
