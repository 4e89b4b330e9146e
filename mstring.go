package yamc

import (
	"encoding/binary"
	"math"
)

// decodeMQTTString reads a length-prefixed MQTT string starting at buf[0].
// It returns a slice of buf (never copied — the caller is responsible for
// the lifetime rules documented on [Packet]), the number of bytes consumed
// (2+length), and an error if the 2-byte length prefix doesn't fit, the
// declared length runs past the end of buf, or requireNonEmpty is set and
// the string is zero-length.
//
// It decodes directly out of a byte slice (the instance's filled receive
// buffer) rather than an io.Reader, since by the time the body decoder
// runs the packet body already sits resident in Instance.rx.
func decodeMQTTString(buf []byte, requireNonEmpty bool) (s []byte, n int, err error) {
	if len(buf) < 2 {
		return nil, 0, errCannotParsef("invalid data: %d bytes left, need 2 for string length prefix", len(buf))
	}
	length := int(binary.BigEndian.Uint16(buf))
	if length == 0 && requireNonEmpty {
		return nil, 2, errCannotParsef("invalid data: empty string not allowed here")
	}
	if 2+length > len(buf) {
		return nil, 0, errCannotParsef("invalid data: declared string length %d exceeds remaining body of %d bytes", length, len(buf)-2)
	}
	return buf[2 : 2+length], 2 + length, nil
}

// encodeMQTTString writes s into buf (which must have length >= 2+len(s))
// as a 2-byte big-endian length prefix followed by the raw bytes, and
// returns the number of bytes written.
func encodeMQTTString(buf []byte, s []byte) int {
	if len(s) > math.MaxUint16 {
		panic("yamc: MQTT string longer than 65535 bytes")
	}
	binary.BigEndian.PutUint16(buf, uint16(len(s)))
	return 2 + copy(buf[2:], s)
}

// mqttStringSize returns 2+len(s), the encoded size of s as an MQTT string.
func mqttStringSize(s []byte) int { return 2 + len(s) }
