package controller

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// modbusServer минимальный Modbus TCP сервер: функции 3 и 6.
type modbusServer struct {
	ln        net.Listener
	mu        sync.Mutex
	registers map[uint16]uint16
	units     []byte
}

func startModbusServer(t *testing.T) *modbusServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &modbusServer{ln: ln, registers: make(map[uint16]uint16)}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *modbusServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *modbusServer) handle(conn net.Conn) {
	defer conn.Close()
	header := make([]byte, 7)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		length := binary.BigEndian.Uint16(header[4:6])
		pdu := make([]byte, length-1)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		s.mu.Lock()
		s.units = append(s.units, header[6])
		var resp []byte
		switch pdu[0] {
		case 0x06:
			addr := binary.BigEndian.Uint16(pdu[1:3])
			s.registers[addr] = binary.BigEndian.Uint16(pdu[3:5])
			resp = pdu[:5]
		case 0x03:
			addr := binary.BigEndian.Uint16(pdu[1:3])
			resp = []byte{0x03, 2, 0, 0}
			binary.BigEndian.PutUint16(resp[2:], s.registers[addr])
		default:
			resp = []byte{pdu[0] | 0x80, 0x01}
		}
		s.mu.Unlock()

		out := make([]byte, 7+len(resp))
		copy(out, header[:4])
		binary.BigEndian.PutUint16(out[4:6], uint16(len(resp)+1))
		out[6] = header[6]
		copy(out[7:], resp)
		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

func TestModbusTransport_RoundTrip(t *testing.T) {
	srv := startModbusServer(t)

	tr := NewModbusTransport(srv.ln.Addr().String(), time.Second)
	l := NewLink(tr, srv.ln.Addr().String())
	require.NoError(t, l.Connect())
	defer l.Disconnect()

	require.NoError(t, l.Stop())
	require.NoError(t, l.SetSpeed(1))

	v, err := l.ReadRegister(60, 2)
	require.NoError(t, err)
	require.Equal(t, uint16(1), v)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Equal(t, uint16(1), srv.registers[121])
	require.Equal(t, uint16(1), srv.registers[203])
	require.Equal(t, []byte{2, 1, 2}, srv.units)
}

func TestModbusTransport_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	l := NewLink(NewModbusTransport(addr, 200*time.Millisecond), addr)
	require.Error(t, l.Connect())
	require.False(t, l.Connected())
}
