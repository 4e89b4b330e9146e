package yamc

// Header is the fixed header shared by every MQTT control packet: a packet
// type, four flag bits, and the Remaining Length of the variable header
// plus payload that follows it.
type Header struct {
	Type            PacketType
	Flags           PacketFlags
	RemainingLength uint32
}

// NewHeader builds a Header, validating that flags are legal for the given
// packet type and that RemainingLength is within the MQTT v3.1.1 maximum.
func NewHeader(pt PacketType, flags PacketFlags, remainingLength uint32) (Header, error) {
	if !pt.valid() {
		return Header{}, errInvalidDataf("packet type %d out of range 1..14", pt)
	}
	if err := pt.validateFlags(flags); err != nil {
		return Header{}, err
	}
	if remainingLength > maxRemainingLengthValue {
		return Header{}, errInvalidDataf("remaining length %d exceeds MQTT v3.1.1 maximum %d", remainingLength, maxRemainingLengthValue)
	}
	return Header{Type: pt, Flags: flags, RemainingLength: remainingLength}, nil
}

func (h Header) firstByte() byte {
	return byte(h.Type)<<4 | byte(h.Flags)
}

// Size returns the encoded length of the fixed header alone (1 byte type/
// flags plus 1-4 bytes Remaining Length varint).
func (h Header) Size() int {
	return 1 + remainingLengthSize(h.RemainingLength)
}

// Put encodes the fixed header into buf, which must have length >= h.Size(),
// and returns the number of bytes written (h.Size()).
func (h Header) Put(buf []byte) int {
	_ = buf[h.Size()-1]
	buf[0] = h.firstByte()
	return 1 + encodeRemainingLength(h.RemainingLength, buf[1:])
}

func (h Header) String() string {
	return h.Type.String()
}
