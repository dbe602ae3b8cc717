// Package mail delivers the emails of the verification flows, either
// directly over SMTP or through a Redis backed task queue
package mail

import (
	"context"
	"errors"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

var ErrInvalidRecipient = errors.New("invalid email address")

// Sender is implemented by everything that can deliver the app's emails
type Sender interface {
	SendVerification(ctx context.Context, email, name string, code int) error
	SendRecovery(ctx context.Context, email, name string, code int) error
	SendPasswordChanged(ctx context.Context, email, name string) error
}

// Dialer is the part of gomail.Dialer SMTP needs
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTP struct {
	Dialer  Dialer
	From    string
	AppName string
}

func NewSMTP(host string, port int, username, password, from, appName string) *SMTP {
	return &SMTP{
		Dialer:  gomail.NewDialer(host, port, username, password),
		From:    from,
		AppName: appName,
	}
}

func (s *SMTP) SendVerification(_ context.Context, email, name string, code int) error {
	body := fmt.Sprintf(`<h2>Hi %v</h2>
<p>Welcome to <strong>%v</strong>.</p>
<p>Your verification code is:</p>
<h3>%d</h3>
<p>Enter this code in the app to activate your account. It expires in 4 minutes.</p>`,
		html.EscapeString(name), html.EscapeString(s.AppName), code)

	return s.send(email, "Verify your email", body)
}

func (s *SMTP) SendRecovery(_ context.Context, email, name string, code int) error {
	body := fmt.Sprintf(`<h2>Hi %v</h2>
<p>You asked to recover your <strong>%v</strong> password.</p>
<p>Your recovery code is:</p>
<h3>%d</h3>
<p>Enter this code in the app to reset your password.</p>
<p><small>This code expires in 10 minutes.</small></p>
<p><small>If you didn't request this, ignore this message.</small></p>`,
		html.EscapeString(name), html.EscapeString(s.AppName), code)

	return s.send(email, s.AppName+" - Password recovery", body)
}

func (s *SMTP) SendPasswordChanged(_ context.Context, email, name string) error {
	body := fmt.Sprintf(`<h2>Hi %v</h2>
<p>Your password has been updated successfully.</p>
<p>If you didn't make this change, contact support immediately.</p>`,
		html.EscapeString(name))

	return s.send(email, "Your password has been updated", body)
}

func (s *SMTP) send(to, subject, body string) error {
	if to == "" || to == s.From {
		return ErrInvalidRecipient
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.From, s.AppName+" - Support")
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.Dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail, %w", err)
	}

	return nil
}
