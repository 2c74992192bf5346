package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/aathi-11/university-voting-portal/internal/config"
)

type captureSender struct {
	sent []*gomail.Message
	err  error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, m...)
	return nil
}

func TestSMTP_NotConfigured(t *testing.T) {
	s := NewSMTP(config.MailConfig{Host: "smtp.example.com", Port: 587}, 5)
	err := s.Deliver(context.Background(), "s1@x.edu", "123456", "S1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSMTP_Deliver(t *testing.T) {
	capture := &captureSender{}
	s := NewSMTP(config.MailConfig{From: "portal@x.edu"}, 5).WithSender(capture)

	require.NoError(t, s.Deliver(context.Background(), "s1@x.edu", "123456", "S1"))
	require.Len(t, capture.sent, 1)

	m := capture.sent[0]
	assert.Equal(t, []string{"s1@x.edu"}, m.GetHeader("To"))
	assert.Equal(t, []string{"portal@x.edu"}, m.GetHeader("From"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), "123456"))
}

func TestSMTP_DeliverFailure(t *testing.T) {
	s := NewSMTP(config.MailConfig{}, 5).WithSender(&captureSender{err: errors.New("connection refused")})
	err := s.Deliver(context.Background(), "s1@x.edu", "123456", "S1")
	assert.Error(t, err)
}

func TestSMTP_CanceledContext(t *testing.T) {
	capture := &captureSender{}
	s := NewSMTP(config.MailConfig{}, 5).WithSender(capture)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Deliver(ctx, "s1@x.edu", "123456", "S1"), context.Canceled)
	assert.Empty(t, capture.sent)
}
