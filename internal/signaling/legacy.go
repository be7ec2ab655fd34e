package signaling

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
)

// Legacy binary protocol: byte 0 is the message type, the rest is type specific.
const (
	// TypeRegisterRoom carries a UTF-8 room code, possibly NUL or whitespace padded.
	TypeRegisterRoom byte = 200

	// TypeHostAnnounce is synthesized by the hub for a connection that joined as a peer:
	// [201][4-byte big-endian host id, always 0][UTF-8 host address][NUL].
	TypeHostAnnounce byte = 201
)

var errShortAnnounce = errors.New("host announcement too short")

func isLegacy(kind FrameKind, data []byte) bool {
	return kind == FrameBinary && len(data) > 0
}

// SanitizeRoomCode strips embedded NUL bytes and surrounding whitespace.
func SanitizeRoomCode(payload []byte) string {
	return strings.TrimSpace(string(bytes.ReplaceAll(payload, []byte{0}, nil)))
}

// EncodeRegisterRoom builds a type 200 frame.
func EncodeRegisterRoom(code string) []byte {
	frame := make([]byte, 0, 1+len(code))
	frame = append(frame, TypeRegisterRoom)
	return append(frame, code...)
}

// EncodeHostAnnounce builds a type 201 frame announcing the host's address.
func EncodeHostAnnounce(hostAddr string) []byte {
	frame := make([]byte, 5, 5+len(hostAddr)+1)
	frame[0] = TypeHostAnnounce
	binary.BigEndian.PutUint32(frame[1:5], 0)
	frame = append(frame, hostAddr...)
	return append(frame, 0)
}

// DecodeHostAnnounce parses a type 201 frame.
func DecodeHostAnnounce(frame []byte) (hostID uint32, hostAddr string, err error) {
	if len(frame) < 6 || frame[0] != TypeHostAnnounce {
		return 0, "", errShortAnnounce
	}
	addr := frame[5:]
	if i := bytes.IndexByte(addr, 0); i >= 0 {
		addr = addr[:i]
	}
	return binary.BigEndian.Uint32(frame[1:5]), string(addr), nil
}
