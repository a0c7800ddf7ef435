package delivery

import (
	"context"
	"fmt"
	"time"

	mail "github.com/go-mail/mail"
	"go.uber.org/zap"

	"github.com/githinji12/stream254-sub000/internal/model"
)

var subjects = map[model.Purpose]string{
	model.PurposeLogin:             "Your stream254 sign-in code",
	model.PurposeEmailVerification: "Verify your stream254 email",
	model.PurposePasswordReset:     "Your stream254 reset code",
}

// SMTPSender delivers passcodes by email over SMTP.
type SMTPSender struct {
	host string
	port int
	from string
	user string
	pass string
	log  *zap.Logger
}

// NewSMTPSender creates a sender for the given SMTP endpoint.
func NewSMTPSender(host string, port int, from, user, pass string, log *zap.Logger) *SMTPSender {
	return &SMTPSender{
		host: host,
		port: port,
		from: from,
		user: user,
		pass: pass,
		log:  log.Named("smtp"),
	}
}

func (s *SMTPSender) SendVerificationCode(_ context.Context, to, code string, purpose model.Purpose, expiry time.Duration) error {
	subject, ok := subjects[purpose]
	if !ok {
		subject = subjects[model.PurposeLogin]
	}

	minutes := int(expiry.Minutes())
	text := fmt.Sprintf("Your code is %s. It expires in %d minutes.\n\nIf you did not request this, you can ignore this email.", code, minutes)
	html := fmt.Sprintf("<p>Your code is <strong>%s</strong>. It expires in %d minutes.</p><p>If you did not request this, you can ignore this email.</p>", code, minutes)

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html)

	d := mail.NewDialer(s.host, s.port, s.user, s.pass)
	if err := d.DialAndSend(m); err != nil {
		s.log.Error("smtp send failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}

	s.log.Info("passcode email sent", zap.String("to", to), zap.String("purpose", string(purpose)))
	return nil
}
