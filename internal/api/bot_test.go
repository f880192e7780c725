package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	app "cell-guard/internal/application"
	"cell-guard/internal/domain/entity"
	"cell-guard/internal/infrastructure/storage"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

type fakeController struct {
	status entity.Status
	err    error
	kinds  []entity.OperatorCommandKind
	speeds []int
}

func (c *fakeController) Do(_ context.Context, kind entity.OperatorCommandKind, speed int) error {
	c.kinds = append(c.kinds, kind)
	c.speeds = append(c.speeds, speed)
	return c.err
}

func (c *fakeController) Status() entity.Status { return c.status }

func newTestBot(control *fakeController) (*Bot, *fakeSender) {
	sender := &fakeSender{}
	svc := app.NewSubscriberService(storage.NewMemorySubscriberRepository())
	return newBot(sender, svc, control, []int64{1}), sender
}

func TestParseOperatorCommand(t *testing.T) {
	kind, speed, err := ParseOperatorCommand("speed", " 1 ")
	require.NoError(t, err)
	require.Equal(t, entity.CommandSetSpeed, kind)
	require.Equal(t, 1, speed)

	_, _, err = ParseOperatorCommand("speed", "2")
	require.ErrorIs(t, err, entity.ErrInvalidCommandArgument)

	_, _, err = ParseOperatorCommand("speed", "")
	require.ErrorIs(t, err, entity.ErrInvalidCommandArgument)

	kind, _, err = ParseOperatorCommand("halt", "")
	require.NoError(t, err)
	require.Equal(t, entity.CommandStop, kind)

	_, _, err = ParseOperatorCommand("dance", "")
	require.ErrorIs(t, err, errUnknownCommand)
}

func TestBot_AdminOnlyCommands(t *testing.T) {
	control := &fakeController{}
	b, _ := newTestBot(control)
	ctx := context.Background()

	require.Equal(t, msgForbidden, b.handleCommand(ctx, 2, 20, "halt", ""))
	require.Empty(t, control.kinds)

	require.Equal(t, msgDone, b.handleCommand(ctx, 1, 10, "halt", ""))
	require.Equal(t, []entity.OperatorCommandKind{entity.CommandStop}, control.kinds)

	require.Equal(t, msgSpeedUsage, b.handleCommand(ctx, 1, 10, "speed", "5"))
	require.Len(t, control.kinds, 1)
}

func TestBot_CommandErrors(t *testing.T) {
	control := &fakeController{err: entity.ErrNotAuthorized}
	b, _ := newTestBot(control)
	ctx := context.Background()

	require.Equal(t, msgNotAuthorized, b.handleCommand(ctx, 1, 10, "run", ""))

	control.err = errors.Join(entity.ErrActuatorWriteFailed, errors.New("timeout"))
	require.Contains(t, b.handleCommand(ctx, 1, 10, "halt", ""), "Команда не выполнена")

	require.Equal(t, msgUnknownCommand, b.handleCommand(ctx, 1, 10, "dance", ""))
}

func TestBot_NotifySubscribers(t *testing.T) {
	b, sender := newTestBot(&fakeController{})
	ctx := context.Background()

	require.Equal(t, msgSubscribed, b.handleCommand(ctx, 1, 10, "subscribe", ""))
	require.Equal(t, msgSubscribed, b.handleCommand(ctx, 2, 20, "subscribe", ""))
	require.Equal(t, msgUnsubscribed, b.handleCommand(ctx, 2, 20, "unsubscribe", ""))

	b.Notify(ctx, "⚠️ test")
	b.broadcast(ctx, <-b.outbox)

	require.Len(t, sender.sent, 1)
	require.Equal(t, int64(10), sender.sent[0].ChatID)
	require.Equal(t, "⚠️ test", sender.sent[0].Text)
}

func TestBot_NotifyDropsWhenFull(t *testing.T) {
	b, _ := newTestBot(&fakeController{})
	for i := 0; i < outboxSize+5; i++ {
		b.Notify(context.Background(), "x")
	}
	require.Len(t, b.outbox, outboxSize)
}

func TestFormatStatus(t *testing.T) {
	text := FormatStatus(entity.Status{
		Phase:      entity.PhaseMonitoring,
		Identity:   "ivanov",
		SessionID:  "abc",
		Connected:  true,
		StopFailed: true,
		FPS:        9.5,
	})
	require.Contains(t, text, "наблюдение")
	require.Contains(t, text, "ivanov")
	require.Contains(t, text, "Сессия: abc")
	require.Contains(t, text, "FPS: 9.5")
	require.Contains(t, text, "аварийная остановка не выполнена")
}
