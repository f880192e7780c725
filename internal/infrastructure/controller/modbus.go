package controller

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// ModbusTransport Modbus TCP поверх goburrow/modbus.
type ModbusTransport struct {
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// NewModbusTransport создаёт транспорт для address вида host:port.
func NewModbusTransport(address string, timeout time.Duration) *ModbusTransport {
	handler := modbus.NewTCPClientHandler(address)
	if timeout > 0 {
		handler.Timeout = timeout
	}
	return &ModbusTransport{
		handler: handler,
		client:  modbus.NewClient(handler),
	}
}

func (t *ModbusTransport) Connect() error {
	return t.handler.Connect()
}

func (t *ModbusTransport) Close() error {
	return t.handler.Close()
}

// WriteSingleRegister пишет одно слово и сверяет эхо ответа.
func (t *ModbusTransport) WriteSingleRegister(slaveID byte, address, value uint16) error {
	t.handler.SlaveId = slaveID
	resp, err := t.client.WriteSingleRegister(address, value)
	if err != nil {
		return err
	}
	if len(resp) != 2 {
		return fmt.Errorf("unexpected response length %d", len(resp))
	}
	if echo := binary.BigEndian.Uint16(resp); echo != value {
		return fmt.Errorf("response value %d does not match request %d", echo, value)
	}
	return nil
}

// ReadHoldingRegister читает одно слово.
func (t *ModbusTransport) ReadHoldingRegister(slaveID byte, address uint16) (uint16, error) {
	t.handler.SlaveId = slaveID
	resp, err := t.client.ReadHoldingRegisters(address, 1)
	if err != nil {
		return 0, err
	}
	if len(resp) != 2 {
		return 0, fmt.Errorf("unexpected response length %d", len(resp))
	}
	return binary.BigEndian.Uint16(resp), nil
}

var _ Transport = (*ModbusTransport)(nil)
