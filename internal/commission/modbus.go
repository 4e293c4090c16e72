// Package commission builds and decodes the raw Modbus frames the vendor's
// custom-control endpoint tunnels to an inverter. Frames travel as spaced
// uppercase hex strings; the CRC is standard Modbus CRC16, little-endian on
// the wire.
package commission

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/sigurn/crc16"
)

// Modbus function codes the vendor accepts.
const (
	FuncReadHolding   = 0x03
	FuncWriteSingle   = 0x06
	FuncWriteMultiple = 0x10
	exceptionFlag     = 0x80
	defaultSlaveID    = 0x01
	maxWriteRegisters = 123
)

var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// ReadHoldingFrame builds a read-holding-registers request.
func ReadHoldingFrame(addr, count uint16) (string, error) {
	if count == 0 {
		return "", errors.New("commission: zero register count")
	}
	frame := []byte{
		defaultSlaveID, FuncReadHolding,
		byte(addr >> 8), byte(addr),
		byte(count >> 8), byte(count),
	}
	return encodeFrame(frame), nil
}

// WriteSingleFrame builds a write-single-register request.
func WriteSingleFrame(addr, value uint16) (string, error) {
	frame := []byte{
		defaultSlaveID, FuncWriteSingle,
		byte(addr >> 8), byte(addr),
		byte(value >> 8), byte(value),
	}
	return encodeFrame(frame), nil
}

// WriteMultipleFrame builds a write-multiple-registers request.
func WriteMultipleFrame(addr uint16, values []uint16) (string, error) {
	if len(values) == 0 {
		return "", errors.New("commission: no register values")
	}
	if len(values) > maxWriteRegisters {
		return "", fmt.Errorf("commission: %d registers exceeds frame limit", len(values))
	}
	frame := []byte{
		defaultSlaveID, FuncWriteMultiple,
		byte(addr >> 8), byte(addr),
		byte(len(values) >> 8), byte(len(values)),
		byte(len(values) * 2),
	}
	for _, v := range values {
		frame = append(frame, byte(v>>8), byte(v))
	}
	return encodeFrame(frame), nil
}

func encodeFrame(frame []byte) string {
	sum := crc16.Checksum(frame, modbusTable)
	frame = append(frame, byte(sum), byte(sum>>8))

	parts := make([]string, len(frame))
	for i, b := range frame {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// Response is a decoded inverter reply.
type Response struct {
	SlaveID   byte
	Function  byte
	Registers []uint16
	// Exception holds the Modbus exception code when the inverter rejected
	// the request.
	Exception byte
}

// Failed reports whether the reply is an exception frame.
func (r *Response) Failed() bool { return r.Exception != 0 }

// ParseResponse decodes the analysis-result hex string returned with a
// finished order. Whitespace in the input is ignored.
func ParseResponse(raw string) (*Response, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\t' {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return nil, errors.New("commission: empty response")
	}

	frame, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("commission: bad response hex: %w", err)
	}
	if len(frame) < 5 {
		return nil, fmt.Errorf("commission: response too short (%d bytes)", len(frame))
	}

	body := frame[:len(frame)-2]
	wire := uint16(frame[len(frame)-2]) | uint16(frame[len(frame)-1])<<8
	if sum := crc16.Checksum(body, modbusTable); sum != wire {
		return nil, fmt.Errorf("commission: crc mismatch: got %04X want %04X", wire, sum)
	}

	resp := &Response{SlaveID: body[0], Function: body[1]}
	if resp.Function&exceptionFlag != 0 {
		if len(body) < 3 {
			return nil, errors.New("commission: truncated exception frame")
		}
		resp.Function &^= exceptionFlag
		resp.Exception = body[2]
		return resp, nil
	}

	switch resp.Function {
	case FuncReadHolding:
		if len(body) < 3 {
			return nil, errors.New("commission: truncated read response")
		}
		count := int(body[2])
		data := body[3:]
		if count%2 != 0 || len(data) != count {
			return nil, fmt.Errorf("commission: byte count %d does not match payload %d", count, len(data))
		}
		for i := 0; i < count; i += 2 {
			resp.Registers = append(resp.Registers, uint16(data[i])<<8|uint16(data[i+1]))
		}
	case FuncWriteSingle, FuncWriteMultiple:
		// Echo frames carry the address and value/count; nothing to extract.
	default:
		return nil, fmt.Errorf("commission: unsupported function %02X", resp.Function)
	}
	return resp, nil
}
