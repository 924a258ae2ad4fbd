package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAPI struct {
	sent    []tgbotapi.MessageConfig
	err     error
	updates chan tgbotapi.Update
	stopped bool
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m.err != nil {
		return tgbotapi.Message{}, m.err
	}
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	m.sent = append(m.sent, msg)
	return tgbotapi.Message{MessageID: 1000 + len(m.sent)}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockAPI) StopReceivingUpdates() { m.stopped = true }

type mockCommander struct {
	got   []string
	reply string
	err   error
}

func (m *mockCommander) Execute(_ context.Context, text string) (string, error) {
	m.got = append(m.got, text)
	return m.reply, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func textMessage(id int, chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{MessageID: id, Chat: &tgbotapi.Chat{ID: chatID}, Text: text}
}

func commandMessage(id int, chatID int64, text string, cmdLen int) *tgbotapi.Message {
	m := textMessage(id, chatID, text)
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}}
	return m
}

// --- tests ---

func TestChannel_Post(t *testing.T) {
	api := &mockAPI{}
	ch := NewChannel(api, -100123)

	id, err := ch.Post(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "1001", id)

	_, err = ch.Post(context.Background(), id, "again")
	require.NoError(t, err)

	require.Len(t, api.sent, 2)
	assert.Equal(t, int64(-100123), api.sent[0].ChatID)
	assert.Equal(t, 0, api.sent[0].ReplyToMessageID)
	assert.Equal(t, 1001, api.sent[1].ReplyToMessageID)
	assert.Equal(t, "telegram", ch.Name())
	assert.Equal(t, MaxMessageLen, ch.MaxLen())
}

func TestChannel_PostErrors(t *testing.T) {
	ch := NewChannel(&mockAPI{}, 1)
	_, err := ch.Post(context.Background(), "not-a-number", "x")
	require.Error(t, err)

	ch = NewChannel(&mockAPI{err: errors.New("Forbidden: bot was blocked")}, 1)
	_, err = ch.Post(context.Background(), "", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram send")
}

func TestCommandText(t *testing.T) {
	assert.Equal(t, "log ja 6", commandText(commandMessage(1, 1, "/log ja 6", 4)))
	assert.Equal(t, "stat", commandText(commandMessage(1, 1, "/stat@spotbot", 13)))
	assert.Equal(t, "dx ft8", commandText(textMessage(1, 1, "  dx ft8 ")))
}

func TestListener_AnswersAsReply(t *testing.T) {
	api := &mockAPI{updates: make(chan tgbotapi.Update, 2)}
	cmd := &mockCommander{reply: "No Spots."}
	l := NewListener(api, cmd, discardLogger())

	api.updates <- tgbotapi.Update{UpdateID: 1, Message: commandMessage(55, 777, "/log ja", 4)}
	api.updates <- tgbotapi.Update{UpdateID: 2} // no message
	close(api.updates)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	l.Run(ctx)

	assert.Equal(t, []string{"log ja"}, cmd.got)
	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(777), api.sent[0].ChatID)
	assert.Equal(t, 55, api.sent[0].ReplyToMessageID)
	assert.Equal(t, "No Spots.", api.sent[0].Text)
	assert.True(t, api.stopped)
}

func TestListener_CommandError(t *testing.T) {
	api := &mockAPI{updates: make(chan tgbotapi.Update, 1)}
	cmd := &mockCommander{err: errors.New("disk I/O error")}
	l := NewListener(api, cmd, discardLogger())

	api.updates <- tgbotapi.Update{UpdateID: 1, Message: textMessage(9, 1, "stat")}
	close(api.updates)

	l.Run(context.Background())

	require.Len(t, api.sent, 1)
	assert.NotContains(t, api.sent[0].Text, "disk")
}

func TestListener_StopsOnCancel(t *testing.T) {
	api := &mockAPI{updates: make(chan tgbotapi.Update)}
	l := NewListener(api, &mockCommander{}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Run(ctx)
	assert.True(t, api.stopped)
}
