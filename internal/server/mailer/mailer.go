// Package mailer sends one-time codes by email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

// Sender delivers a single HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// dialer is the part of *gomail.Dialer the mailer needs.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	dialer dialer
	from   string
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

// Send dials the relay for every message. The context is not consulted by
// the SMTP client.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

var codeTemplate = template.Must(template.New("code").Parse(`
<h2>{{.Title}}</h2>
<p>Hello {{.Name}},</p>
<p>{{.Intro}}</p>
<p style="font-size:24px;letter-spacing:4px"><strong>{{.Code}}</strong></p>
<p>This code expires in 5 minutes.</p>
<p>If you did not request this, you can ignore this email.</p>
`))

type codeData struct {
	Title string
	Name  string
	Intro string
	Code  string
}

func render(d codeData) (string, error) {
	var buf bytes.Buffer
	if err := codeTemplate.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendVerificationCode mails an email verification code.
func SendVerificationCode(ctx context.Context, s Sender, to, name, code string) error {
	body, err := render(codeData{
		Title: "Verify your email address",
		Name:  name,
		Intro: "Use the code below to verify your email address:",
		Code:  code,
	})
	if err != nil {
		return err
	}
	return s.Send(ctx, to, "Your verification code: "+code, body)
}

// SendPasswordResetCode mails a password reset code.
func SendPasswordResetCode(ctx context.Context, s Sender, to, name, code string) error {
	body, err := render(codeData{
		Title: "Password reset requested",
		Name:  name,
		Intro: "Use the code below to reset your password:",
		Code:  code,
	})
	if err != nil {
		return err
	}
	return s.Send(ctx, to, "Your password reset code: "+code, body)
}
