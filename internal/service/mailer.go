// Package service holds the supporting collaborators around the auth
// core: mail transport and dispatch, resend throttling and the expiry
// sweeps.
package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer abstracts the outbound mail transport so the orchestrator
// never knows whether SMTP is real or mocked.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends through a configured SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     int
	From     string
	Password string
}

var _ Mailer = (*SMTPMailer)(nil)

func (m *SMTPMailer) Send(to, subject, body string) error {
	if to == m.From {
		return errors.New("invalid recipient address")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	d := gomail.NewDialer(m.Host, m.Port, m.From, m.Password)

	return d.DialAndSend(msg)
}

// LogMailer replaces SMTP when mail is disabled. Messages only show up
// in the logs, which is what local development wants anyway.
type LogMailer struct{}

var _ Mailer = (*LogMailer)(nil)

func (LogMailer) Send(to, subject, body string) error {
	zap.L().Info("Mail transport disabled, dropping message",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// VerificationMail renders the subject and body for a verification code
// delivery.
func VerificationMail(code string) (subject, body string) {
	subject = "Verify your email to start using CutnPaste"
	body = fmt.Sprintf(
		"Your CutnPaste verification code is <b>%s</b>.<br><br>It expires in 1 hour. If you didn't request this, you can ignore this email.",
		code,
	)
	return subject, body
}
