package entity

import "fmt"

// Логические адреса регистров контроллера.
const (
	RegisterEmergencyStop uint16 = 60  // 0 работа, 1 стоп
	RegisterExternalReset uint16 = 61  // внешний сброс
	RegisterFeedOverride  uint16 = 16  // процент подачи
	RegisterJogOverride   uint16 = 17  // процент ручного перемещения
	RegisterSpeedMode     uint16 = 101 // режим скорости, ведомый 1
)

// Идентификаторы ведомых устройств.
const (
	SlaveSpeedController byte = 1
	SlaveRobotController byte = 2
)

// Значения процента подачи.
const (
	OverrideSlow uint16 = 20
	OverrideFast uint16 = 70
)

// MaxLogicalAddress наибольший адрес, для которого 2a+1 помещается в uint16
const MaxLogicalAddress uint16 = (0xFFFF - 1) / 2

// ActuatorCommand запись одного значения в регистр.
type ActuatorCommand struct {
	Address uint16
	Value   uint16
	SlaveID byte
}

// WireAddress адрес регистра на линии: каждый регистр занимает два слова со сдвигом 1.
func WireAddress(address uint16) uint16 {
	return address*2 + 1
}

// WireAddress адрес команды на линии.
func (c ActuatorCommand) WireAddress() uint16 {
	return WireAddress(c.Address)
}

func (c ActuatorCommand) String() string {
	return fmt.Sprintf("R%d=%d@slave%d", c.Address, c.Value, c.SlaveID)
}

// OperatorCommandKind вид команды оператора
type OperatorCommandKind string

const (
	CommandStart       OperatorCommandKind = "start"
	CommandStop        OperatorCommandKind = "stop"
	CommandFast        OperatorCommandKind = "fast"
	CommandSlow        OperatorCommandKind = "slow"
	CommandSetSpeed    OperatorCommandKind = "speed"
	CommandReauthorize OperatorCommandKind = "reauthorize"
)

// OperatorCommand запрос оператора, исполняется циклом кадров на границе тика.
type OperatorCommand struct {
	Kind  OperatorCommandKind
	Speed int
	Reply chan error // может быть nil
}
