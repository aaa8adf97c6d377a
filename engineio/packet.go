package engineio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrEmptyPacket       = errors.New("empty packet")
	ErrInvalidPacketType = errors.New("invalid packet type")
)

// PacketType represents Engine.IO packet types
type PacketType byte

const (
	PacketTypeOpen PacketType = iota
	PacketTypeClose
	PacketTypePing
	PacketTypePong
	PacketTypeMessage
	PacketTypeUpgrade
	PacketTypeNoop
)

// Packet is one Engine.IO frame: a single type digit followed by the payload.
type Packet struct {
	Type PacketType
	Data []byte
}

// Encode encodes the packet to bytes
func (p *Packet) Encode() []byte {
	out := make([]byte, 0, len(p.Data)+1)
	out = append(out, byte('0'+p.Type))
	return append(out, p.Data...)
}

// DecodePacket decodes bytes into a packet
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPacket
	}

	t := data[0]
	if t < '0' || t > '0'+byte(PacketTypeNoop) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPacketType, t)
	}

	packet := &Packet{Type: PacketType(t - '0')}
	if len(data) > 1 {
		packet.Data = data[1:]
	}
	return packet, nil
}

// HandshakeData is the payload of the open packet sent right after the
// WebSocket upgrade.
type HandshakeData struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// EncodeHandshake creates an open packet with handshake data
func EncodeHandshake(sid string, pingInterval, pingTimeout, maxPayload int) ([]byte, error) {
	payload, err := json.Marshal(HandshakeData{
		SID:          sid,
		Upgrades:     []string{}, // websocket is the only transport
		PingInterval: pingInterval,
		PingTimeout:  pingTimeout,
		MaxPayload:   maxPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal handshake: %w", err)
	}

	return (&Packet{Type: PacketTypeOpen, Data: payload}).Encode(), nil
}

// String returns the packet type as a string
func (pt PacketType) String() string {
	switch pt {
	case PacketTypeOpen:
		return "open"
	case PacketTypeClose:
		return "close"
	case PacketTypePing:
		return "ping"
	case PacketTypePong:
		return "pong"
	case PacketTypeMessage:
		return "message"
	case PacketTypeUpgrade:
		return "upgrade"
	case PacketTypeNoop:
		return "noop"
	default:
		return "unknown(" + strconv.Itoa(int(pt)) + ")"
	}
}
