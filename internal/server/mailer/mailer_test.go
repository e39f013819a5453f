package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

type recordingSender struct {
	to, subject, body string
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.to, r.subject, r.body = to, subject, body
	return nil
}

func TestSMTPSender_SetsHeaders(t *testing.T) {
	d := &fakeDialer{}
	s := &SMTPSender{dialer: d, from: "noreply@ledger.test"}

	require.NoError(t, s.Send(context.Background(), "a@x.com", "hi", "<p>x</p>"))
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"noreply@ledger.test"}, m.GetHeader("From"))
	assert.Equal(t, []string{"a@x.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"hi"}, m.GetHeader("Subject"))
}

func TestSMTPSender_WrapsDialError(t *testing.T) {
	boom := errors.New("535 auth failed")
	s := &SMTPSender{dialer: &fakeDialer{err: boom}, from: "f"}

	err := s.Send(context.Background(), "a@x.com", "s", "b")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to send email")
}

func TestSendVerificationCode(t *testing.T) {
	r := &recordingSender{}
	require.NoError(t, SendVerificationCode(context.Background(), r, "a@x.com", "Alice", "123456"))

	assert.Equal(t, "a@x.com", r.to)
	assert.Equal(t, "Your verification code: 123456", r.subject)
	assert.Contains(t, r.body, "123456")
	assert.Contains(t, r.body, "Hello Alice")
	assert.Contains(t, r.body, "expires in 5 minutes")
}

func TestSendPasswordResetCode_EscapesName(t *testing.T) {
	r := &recordingSender{}
	require.NoError(t, SendPasswordResetCode(context.Background(), r, "b@x.com", "<b>Bob</b>", "654321"))

	assert.Equal(t, "Your password reset code: 654321", r.subject)
	assert.Contains(t, r.body, "&lt;b&gt;Bob&lt;/b&gt;")
	assert.NotContains(t, r.body, "<b>Bob</b>")
}
