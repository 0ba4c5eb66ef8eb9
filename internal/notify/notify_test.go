package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	netmail "net/mail"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	b.sent = append(b.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{name: "fits", text: "a\nb\n", max: 10, want: []string{"a\nb\n"}},
		{name: "line boundaries", text: "aaa\nbbb\nccc\n", max: 8, want: []string{"aaa\nbbb\n", "ccc\n"}},
		{name: "long line", text: "abcdefgh\nx", max: 4, want: []string{"abcd", "efgh", "\nx"}},
		{name: "runes", text: "ééé\nééé", max: 4, want: []string{"ééé\n", "ééé"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitMessage(tt.text, tt.max))
		})
	}
}

func TestTelegramNotify(t *testing.T) {
	bot := &fakeBot{}
	tg := newTelegram(bot, 42)

	body := strings.Repeat("SPY\n", 2000)
	require.NoError(t, tg.Notify(context.Background(), "Trend report 17-05-2024", body))

	require.Len(t, bot.sent, 2)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, body, bot.sent[0].Text+bot.sent[1].Text)
	assert.Empty(t, bot.sent[0].ParseMode)
}

func TestTelegramNotifyError(t *testing.T) {
	tg := newTelegram(&fakeBot{err: errors.New("Bad Request: chat not found")}, 42)

	err := tg.Notify(context.Background(), "subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

type fakeMailer struct {
	sent []*mail.Msg
	err  error
}

func (m *fakeMailer) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, messages...)
	return nil
}

func TestEmailNotify(t *testing.T) {
	mailer := &fakeMailer{}
	e := newEmail(mailer, "bot@example.com", []string{"a@example.com", "b@example.com"})

	subject := "Trend report 17-05-2024 Zürich"
	require.NoError(t, e.Notify(context.Background(), subject, "line1\nline2\n"))
	require.Len(t, mailer.sent, 1)

	var buf bytes.Buffer
	_, err := mailer.sent[0].WriteTo(&buf)
	require.NoError(t, err)

	parsed, err := netmail.ReadMessage(&buf)
	require.NoError(t, err)

	raw := parsed.Header.Get("Subject")
	assert.NotContains(t, raw, "ü", "non-ASCII subject must be encoded")
	decoded, err := new(mime.WordDecoder).DecodeHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, subject, decoded)

	to, err := parsed.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, "a@example.com", to[0].Address)
	assert.Equal(t, "b@example.com", to[1].Address)

	body, err := io.ReadAll(parsed.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "line1")
	assert.Contains(t, string(body), "line2")
}

func TestEmailNotifyFailure(t *testing.T) {
	e := newEmail(&fakeMailer{err: errors.New("554 rejected")}, "bot@example.com", []string{"a@example.com"})

	err := e.Notify(context.Background(), "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "554 rejected")

	assert.Error(t, newEmail(&fakeMailer{}, "bot@example.com", nil).Notify(context.Background(), "s", "b"))
	assert.Error(t, newEmail(&fakeMailer{}, "not an address", []string{"a@example.com"}).Notify(context.Background(), "s", "b"))
}

func TestEmailNotifyCanceled(t *testing.T) {
	e, err := NewEmail("127.0.0.1", 1, "", "", "bot@example.com", []string{"a@example.com"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, e.Notify(ctx, "s", "b"))
}
