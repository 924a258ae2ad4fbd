// Package telegram posts spots and reports to a Telegram chat and answers
// query commands sent to the bot.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/couchcryptid/activation-spot-service/internal/notify"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageLen is Telegram's limit for a text message.
const MaxMessageLen = 4096

// API is the subset of *tgbotapi.BotAPI used here.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Commander answers free-text query commands.
type Commander interface {
	Execute(ctx context.Context, text string) (string, error)
}

// NewAPI connects to the Bot API with token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return api, nil
}

// Channel posts to one chat. It implements notify.Channel.
type Channel struct {
	api    API
	chatID int64
}

// NewChannel creates a Channel bound to chatID.
func NewChannel(api API, chatID int64) *Channel {
	return &Channel{api: api, chatID: chatID}
}

func (c *Channel) Name() string { return "telegram" }

func (c *Channel) MaxLen() int { return MaxMessageLen }

// Post sends text as plain text. replyTo is a message id in the same chat.
func (c *Channel) Post(_ context.Context, replyTo, text string) (string, error) {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.DisableWebPagePreview = true
	if replyTo != "" {
		id, err := strconv.Atoi(replyTo)
		if err != nil {
			return "", fmt.Errorf("invalid reply id %q", replyTo)
		}
		msg.ReplyToMessageID = id
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

// Listener answers commands sent to the bot in any chat.
type Listener struct {
	api    API
	cmd    Commander
	logger *slog.Logger
}

// NewListener creates a Listener.
func NewListener(api API, cmd Commander, logger *slog.Logger) *Listener {
	return &Listener{api: api, cmd: cmd, logger: logger}
}

// Run long-polls for updates until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}
	updates := l.api.GetUpdatesChan(u)
	defer l.api.StopReceivingUpdates()

	l.logger.Info("telegram listener started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("telegram listener stopping", "reason", ctx.Err())
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			l.handle(ctx, update)
		}
	}
}

func (l *Listener) handle(ctx context.Context, update tgbotapi.Update) {
	m := update.Message
	if m == nil || m.Text == "" {
		return
	}
	text := commandText(m)

	reply, err := l.cmd.Execute(ctx, text)
	if err != nil {
		l.logger.Error("command failed", "chat_id", m.Chat.ID, "command", text, "error", err)
		reply = "Sorry, the spot database is not available right now."
	}

	ch := NewChannel(l.api, m.Chat.ID)
	if _, err := notify.Thread(ctx, ch, strconv.Itoa(m.MessageID), reply); err != nil {
		l.logger.Warn("command reply failed", "chat_id", m.Chat.ID, "error", err)
		return
	}
	l.logger.Info("command answered", "chat_id", m.Chat.ID, "command", text)
}

// commandText turns "/log ja 6" or "/log@spotbot ja 6" into "log ja 6".
// Plain messages are used as they are.
func commandText(m *tgbotapi.Message) string {
	if !m.IsCommand() {
		return strings.TrimSpace(m.Text)
	}
	return strings.TrimSpace(m.Command() + " " + m.CommandArguments())
}
