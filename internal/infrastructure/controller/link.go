package controller

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

// Transport регистровый протокол на уровне линии. Адреса уже пересчитаны.
type Transport interface {
	Connect() error
	Close() error
	WriteSingleRegister(slaveID byte, address, value uint16) error
	ReadHoldingRegister(slaveID byte, address uint16) (uint16, error)
}

// Link клиент контроллера станка поверх Transport.
// Не потокобезопасен.
type Link struct {
	transport Transport
	target    string
	connected bool
}

// NewLink создаёт клиента, target используется только в логах и ошибках.
func NewLink(transport Transport, target string) *Link {
	return &Link{transport: transport, target: target}
}

// Connect устанавливает соединение с контроллером.
func (l *Link) Connect() error {
	if err := l.transport.Connect(); err != nil {
		l.connected = false
		return fmt.Errorf("%w: %s: %v", entity.ErrActuatorConnectionFailed, l.target, err)
	}
	l.connected = true
	log.Info().Str("target", l.target).Msg("actuator connected")
	return nil
}

// Disconnect закрывает соединение. Повторный вызов безопасен.
func (l *Link) Disconnect() error {
	if !l.connected {
		return nil
	}
	l.connected = false
	if err := l.transport.Close(); err != nil {
		return fmt.Errorf("close %s: %w", l.target, err)
	}
	log.Info().Str("target", l.target).Msg("actuator disconnected")
	return nil
}

// Connected сообщает, открыто ли соединение.
func (l *Link) Connected() bool {
	return l.connected
}

// WriteRegister пишет значение в логический регистр address.
func (l *Link) WriteRegister(address, value uint16, slaveID byte) error {
	if !l.connected {
		return entity.ErrActuatorNotConnected
	}
	if address > entity.MaxLogicalAddress {
		return fmt.Errorf("%w: register %d out of range", entity.ErrInvalidCommandArgument, address)
	}
	if err := l.transport.WriteSingleRegister(slaveID, entity.WireAddress(address), value); err != nil {
		return fmt.Errorf("%w: register %d: %v", entity.ErrActuatorWriteFailed, address, err)
	}
	log.Debug().Uint16("register", address).Uint16("value", value).Uint8("slave", slaveID).Msg("register written")
	return nil
}

// ReadRegister читает логический регистр address.
func (l *Link) ReadRegister(address uint16, slaveID byte) (uint16, error) {
	if !l.connected {
		return 0, entity.ErrActuatorNotConnected
	}
	if address > entity.MaxLogicalAddress {
		return 0, fmt.Errorf("%w: register %d out of range", entity.ErrInvalidCommandArgument, address)
	}
	value, err := l.transport.ReadHoldingRegister(slaveID, entity.WireAddress(address))
	if err != nil {
		return 0, fmt.Errorf("%w: register %d: %v", entity.ErrActuatorReadFailed, address, err)
	}
	log.Debug().Uint16("register", address).Uint16("value", value).Uint8("slave", slaveID).Msg("register read")
	return value, nil
}

// Execute выполняет одну команду.
func (l *Link) Execute(cmd entity.ActuatorCommand) error {
	return l.WriteRegister(cmd.Address, cmd.Value, cmd.SlaveID)
}

// run выполняет последовательность записей и останавливается на первой ошибке.
// Атомарности нет: уже выполненные записи не откатываются.
// Если соединения нет, перед записью выполняется одна попытка переподключения.
func (l *Link) run(name string, cmds ...entity.ActuatorCommand) error {
	if !l.connected {
		log.Info().Str("target", l.target).Str("op", name).Msg("actuator offline, reconnecting")
		if err := l.Connect(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for i, cmd := range cmds {
		if err := l.Execute(cmd); err != nil {
			return fmt.Errorf("%s: step %d/%d (%s): %w", name, i+1, len(cmds), cmd, err)
		}
	}
	log.Info().Str("op", name).Int("writes", len(cmds)).Msg("actuator command done")
	return nil
}

// Start снимает аварийный стоп и подаёт внешний сброс.
func (l *Link) Start() error {
	return l.run("start", StartSequence()...)
}

// Stop включает аварийный стоп.
func (l *Link) Stop() error {
	return l.run("stop", StopSequence()...)
}

// Fast выставляет быстрые проценты подачи и перемещения.
func (l *Link) Fast() error {
	return l.run("fast", OverrideSequence(entity.OverrideFast)...)
}

// Slow выставляет медленные проценты подачи и перемещения.
func (l *Link) Slow() error {
	return l.run("slow", OverrideSequence(entity.OverrideSlow)...)
}

// SetSpeed выбирает режим скорости: 0 медленно, 1 быстро.
// Неверное значение отклоняется без обращения к устройству.
func (l *Link) SetSpeed(speed int) error {
	if speed != 0 && speed != 1 {
		return fmt.Errorf("%w: speed %d, use 0 for slow or 1 for fast", entity.ErrInvalidCommandArgument, speed)
	}
	return l.run("set speed", entity.ActuatorCommand{
		Address: entity.RegisterSpeedMode,
		Value:   uint16(speed),
		SlaveID: entity.SlaveSpeedController,
	})
}

// StartSequence команды запуска.
func StartSequence() []entity.ActuatorCommand {
	return []entity.ActuatorCommand{
		{Address: entity.RegisterEmergencyStop, Value: 0, SlaveID: entity.SlaveRobotController},
		{Address: entity.RegisterExternalReset, Value: 1, SlaveID: entity.SlaveRobotController},
	}
}

// StopSequence команды остановки.
func StopSequence() []entity.ActuatorCommand {
	return []entity.ActuatorCommand{
		{Address: entity.RegisterEmergencyStop, Value: 1, SlaveID: entity.SlaveRobotController},
	}
}

// OverrideSequence команды процента подачи и ручного перемещения.
func OverrideSequence(percent uint16) []entity.ActuatorCommand {
	return []entity.ActuatorCommand{
		{Address: entity.RegisterFeedOverride, Value: percent, SlaveID: entity.SlaveRobotController},
		{Address: entity.RegisterJogOverride, Value: percent, SlaveID: entity.SlaveRobotController},
	}
}

// Проверка реализации интерфейса
var _ port.Actuator = (*Link)(nil)
