package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Telegram rejects longer texts
const telegramMaxLen = 4096

// Telegram allows 30 messages per second for bots
const telegramSendDelay = 50 * time.Millisecond

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts the report to one chat as plain text
type Telegram struct {
	bot    sender
	chatID int64
	logger zerolog.Logger
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newTelegram(bot, chatID), nil
}

func newTelegram(bot sender, chatID int64) *Telegram {
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram").Logger(),
	}
}

// Notify sends the body, split into as many messages as needed. The subject
// is already the body's first line.
func (t *Telegram) Notify(ctx context.Context, subject, body string) error {
	chunks := splitMessage(body, telegramMaxLen)
	for i, chunk := range chunks {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(telegramSendDelay):
			}
		}

		if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, chunk)); err != nil {
			return fmt.Errorf("send %q part %d/%d: %w", subject, i+1, len(chunks), err)
		}
	}
	t.logger.Info().Int64("chat_id", t.chatID).Int("parts", len(chunks)).Msg("Report sent")
	return nil
}

// splitMessage cuts text at line boundaries into pieces of at most limit runes.
// A single line longer than limit is cut mid-line.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	flush := func() {
		if n > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			n = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		size := utf8.RuneCountInString(line)
		if n+size > limit {
			flush()
		}
		for size > limit {
			r := []rune(line)
			chunks = append(chunks, string(r[:limit]))
			line = string(r[limit:])
			size -= limit
		}
		cur.WriteString(line)
		n += size
	}
	flush()
	return chunks
}
