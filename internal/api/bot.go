package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	app "cell-guard/internal/application"
	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

const (
	msgStart = `👋 Привет! Я слежу за рабочей зоной станка.

🔐 Оператор проходит проверку по лицу, после этого камера зоны следит, что человек на месте.

📋 Команды:
/subscribe — получать уведомления
/unsubscribe — отключить уведомления
/status — текущее состояние
/help — справка`

	msgHelp = `ℹ️ Команды:

/subscribe — получать уведомления о допуске и остановках
/unsubscribe — отключить уведомления
/status — состояние сессии и станка

🛠 Для администраторов:
/run — запуск станка (нужен допуск)
/halt — аварийная остановка
/fast — подача 70%
/slow — подача 20%
/speed 0|1 — режим скорости
/reauth — вернуть к проверке лица`

	msgSubscribed     = "🔔 Уведомления включены."
	msgUnsubscribed   = "🔕 Уведомления отключены."
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
	msgForbidden      = "⛔ Команда доступна только администраторам."
	msgDone           = "✅ Выполнено."
	msgSpeedUsage     = "⚠️ Используйте: /speed 0 или /speed 1"
	msgNotAuthorized  = "🔐 Сначала пройдите проверку по лицу."
	msgNotConnected   = "🔌 Нет связи с контроллером."
	msgBusy           = "⏳ Очередь команд переполнена, повторите позже."
	msgCommandFailed  = "⚠️ Команда не выполнена: %v"
	msgInternalError  = "⚠️ Внутренняя ошибка, попробуйте позже."
)

const outboxSize = 32

// Sender отправка сообщений, реализуется *tgbotapi.BotAPI
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Controller команды циклу кадров
type Controller interface {
	Do(ctx context.Context, kind entity.OperatorCommandKind, speed int) error
	Status() entity.Status
}

// Bot представляет Telegram-бота
type Bot struct {
	api         *tgbotapi.BotAPI
	sender      Sender
	subscribers *app.SubscriberService
	control     Controller
	admins      map[int64]bool
	outbox      chan string
}

// NewBot создаёт нового бота
func NewBot(token string, subscribers *app.SubscriberService, control Controller, adminIDs []int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Info().Str("account", api.Self.UserName).Msg("telegram authorized")

	b := newBot(api, subscribers, control, adminIDs)
	b.api = api
	return b, nil
}

func newBot(sender Sender, subscribers *app.SubscriberService, control Controller, adminIDs []int64) *Bot {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Bot{
		sender:      sender,
		subscribers: subscribers,
		control:     control,
		admins:      admins,
		outbox:      make(chan string, outboxSize),
	}
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	go b.deliver(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// Notify ставит уведомление в очередь рассылки, не блокирует цикл кадров
func (b *Bot) Notify(_ context.Context, text string) {
	select {
	case b.outbox <- text:
	default:
		log.Warn().Str("text", text).Msg("notification dropped")
	}
}

// deliver рассылает уведомления подписчикам
func (b *Bot) deliver(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-b.outbox:
			b.broadcast(ctx, text)
		}
	}
}

func (b *Bot) broadcast(ctx context.Context, text string) {
	chats, err := b.subscribers.ChatIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list subscribers")
		return
	}
	for _, chatID := range chats {
		b.sendMessage(chatID, text)
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !msg.IsCommand() {
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
		return
	}
	b.sendMessage(msg.Chat.ID, b.handleCommand(ctx, msg.From.ID, msg.Chat.ID, msg.Command(), msg.CommandArguments()))
}

// handleCommand выполняет команду и возвращает ответ
func (b *Bot) handleCommand(ctx context.Context, userID, chatID int64, command, args string) string {
	switch command {
	case "start":
		if _, err := b.subscribers.Get(ctx, userID, chatID); err != nil {
			log.Error().Err(err).Int64("user", userID).Msg("failed to get subscriber")
			return msgInternalError
		}
		return msgStart

	case "help":
		return msgHelp

	case "subscribe":
		if _, err := b.subscribers.Subscribe(ctx, userID, chatID); err != nil {
			log.Error().Err(err).Int64("user", userID).Msg("failed to subscribe")
			return msgInternalError
		}
		return msgSubscribed

	case "unsubscribe":
		if _, err := b.subscribers.Unsubscribe(ctx, userID, chatID); err != nil {
			log.Error().Err(err).Int64("user", userID).Msg("failed to unsubscribe")
			return msgInternalError
		}
		return msgUnsubscribed

	case "status":
		return FormatStatus(b.control.Status())
	}

	kind, speed, err := ParseOperatorCommand(command, args)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidCommandArgument) {
			return msgSpeedUsage
		}
		return msgUnknownCommand
	}
	if !b.admins[userID] {
		return msgForbidden
	}

	log.Info().Int64("user", userID).Str("command", string(kind)).Msg("operator command")
	return commandReply(b.control.Do(ctx, kind, speed))
}

var errUnknownCommand = errors.New("unknown command")

// ParseOperatorCommand разбирает команду бота в команду оператора
func ParseOperatorCommand(command, args string) (entity.OperatorCommandKind, int, error) {
	switch command {
	case "run":
		return entity.CommandStart, 0, nil
	case "halt":
		return entity.CommandStop, 0, nil
	case "fast":
		return entity.CommandFast, 0, nil
	case "slow":
		return entity.CommandSlow, 0, nil
	case "reauth":
		return entity.CommandReauthorize, 0, nil
	case "speed":
		speed, err := strconv.Atoi(strings.TrimSpace(args))
		if err != nil || (speed != 0 && speed != 1) {
			return "", 0, fmt.Errorf("%w: speed %q", entity.ErrInvalidCommandArgument, args)
		}
		return entity.CommandSetSpeed, speed, nil
	}
	return "", 0, fmt.Errorf("%w: %s", errUnknownCommand, command)
}

func commandReply(err error) string {
	switch {
	case err == nil:
		return msgDone
	case errors.Is(err, entity.ErrNotAuthorized):
		return msgNotAuthorized
	case errors.Is(err, entity.ErrActuatorNotConnected):
		return msgNotConnected
	case errors.Is(err, entity.ErrCommandQueueFull):
		return msgBusy
	case errors.Is(err, entity.ErrInvalidCommandArgument):
		return msgSpeedUsage
	}
	return fmt.Sprintf(msgCommandFailed, err)
}

// FormatStatus текст состояния для оператора
func FormatStatus(s entity.Status) string {
	var sb strings.Builder

	phase := "🔐 ожидание допуска"
	if s.Phase == entity.PhaseMonitoring {
		phase = "👁 наблюдение"
	}
	fmt.Fprintf(&sb, "Фаза: %s\n", phase)
	fmt.Fprintf(&sb, "Оператор: %s\n", s.Identity)
	if s.SessionID != "" {
		fmt.Fprintf(&sb, "Сессия: %s\n", s.SessionID)
	}
	fmt.Fprintf(&sb, "Контроллер: %s\n", yesNo(s.Connected, "🟢 на связи", "🔴 нет связи"))
	fmt.Fprintf(&sb, "Станок: %s\n", yesNo(s.MachineRunning, "работает", "остановлен"))
	fmt.Fprintf(&sb, "Человек в зоне: %s\n", yesNo(s.PersonDetected, "да", "нет"))
	fmt.Fprintf(&sb, "FPS: %.1f", s.FPS)
	if s.StopFailed {
		sb.WriteString("\n🛑 Последняя аварийная остановка не выполнена!")
	}
	if s.LastError != "" {
		fmt.Fprintf(&sb, "\nОшибка: %s", s.LastError)
	}
	return sb.String()
}

func yesNo(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat", chatID).Msg("failed to send message")
	}
}

// Проверка реализации интерфейса
var _ port.Notifier = (*Bot)(nil)

var _ Controller = (*app.Pipeline)(nil)
