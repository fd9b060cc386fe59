package contact

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Zachkp/researcher-profile/internal/config"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		ok   bool
	}{
		{"valid", Message{Name: " Ada ", Email: "ada@example.com", Body: "Hi"}, true},
		{"no name", Message{Email: "ada@example.com", Body: "Hi"}, false},
		{"no email", Message{Name: "Ada", Body: "Hi"}, false},
		{"bad email", Message{Name: "Ada", Email: "ada.example.com", Body: "Hi"}, false},
		{"header injection", Message{Name: "Ada", Email: "a@b.c\r\nBcc: x@y.z", Body: "Hi"}, false},
		{"multiline name", Message{Name: "Ada\nBcc: x", Email: "a@b.c", Body: "Hi"}, false},
		{"no body", Message{Name: "Ada", Email: "ada@example.com", Body: "   "}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestSMTPMailer(t *testing.T) {
	cfg := config.SMTPConfig{Host: "smtp.example.com", Port: "587", User: "site@example.com", Pass: "pw"}
	msg := Message{Name: "Ada", Email: "ada@example.com", Body: "Loved the trypanosome paper."}

	t.Run("not configured", func(t *testing.T) {
		m := NewSMTPMailer(config.SMTPConfig{Host: "h", Port: "25"}, "me@example.com", zap.NewNop())
		assert.ErrorIs(t, m.Send(context.Background(), msg), ErrNotConfigured)
	})

	t.Run("sends to fallback address", func(t *testing.T) {
		m := NewSMTPMailer(cfg, "researcher@example.com", zap.NewNop())
		var gotAddr, gotFrom string
		var gotTo []string
		var body []byte
		m.send = func(addr string, _ smtp.Auth, from string, to []string, b []byte) error {
			gotAddr, gotFrom, gotTo, body = addr, from, to, b
			return nil
		}

		require.NoError(t, m.Send(context.Background(), msg))
		assert.Equal(t, "smtp.example.com:587", gotAddr)
		assert.Equal(t, "site@example.com", gotFrom)
		assert.Equal(t, []string{"researcher@example.com"}, gotTo)
		assert.True(t, strings.Contains(string(body), "Reply-To: ada@example.com\r\n"))
		assert.True(t, strings.Contains(string(body), "Loved the trypanosome paper."))
	})

	t.Run("relay failure", func(t *testing.T) {
		m := NewSMTPMailer(cfg, "researcher@example.com", zap.NewNop())
		boom := errors.New("connection refused")
		m.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }
		assert.ErrorIs(t, m.Send(context.Background(), msg), boom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		m := NewSMTPMailer(cfg, "researcher@example.com", zap.NewNop())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, m.Send(ctx, msg), context.Canceled)
	})
}
