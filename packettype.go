package yamc

// PacketType represents the 4 MSB bits in the first byte of an MQTT fixed
// header. Values 1..14 are defined; 0 and 15 are reserved/forbidden. A
// single closed enumeration is shared by the framer, decoder and encoder.
type PacketType byte

const (
	// 0 is forbidden/reserved and never produced by NewHeader.
	_ PacketType = iota
	PacketConnect
	PacketConnack
	PacketPublish
	PacketPuback
	PacketPubrec
	PacketPubrel
	PacketPubcomp
	PacketSubscribe
	PacketSuback
	PacketUnsubscribe
	PacketUnsuback
	PacketPingreq
	PacketPingresp
	PacketDisconnect
)

// minPacketType and maxPacketType bound the values the fixed-header
// parser will accept without disconnecting: type 0 and 15 are reserved.
const (
	minPacketType = PacketConnect
	maxPacketType = PacketDisconnect
)

func (p PacketType) valid() bool {
	return p >= minPacketType && p <= maxPacketType
}

// flagsPubrelSubUnsub is the reserved low-nibble flag value required on
// PUBREL, SUBSCRIBE and UNSUBSCRIBE fixed headers: 0b0010.
const flagsPubrelSubUnsub PacketFlags = 0b0010

// hasPacketIdentifier reports whether a non-PUBLISH packet type carries a
// 2-byte packet identifier in its variable header. Must not be called with
// PacketPublish, since that depends on the packet's QoS, not its type alone.
func (p PacketType) hasPacketIdentifier() bool {
	if p == PacketPublish {
		panic("yamc: hasPacketIdentifier called on PUBLISH; depends on QoS, use PacketFlags.QoS")
	}
	switch p {
	case PacketConnect, PacketConnack, PacketPingreq, PacketPingresp, PacketDisconnect:
		return false
	default:
		return true
	}
}

func (p PacketType) String() string {
	switch p {
	case PacketConnect:
		return "CONNECT"
	case PacketConnack:
		return "CONNACK"
	case PacketPublish:
		return "PUBLISH"
	case PacketPuback:
		return "PUBACK"
	case PacketPubrec:
		return "PUBREC"
	case PacketPubrel:
		return "PUBREL"
	case PacketPubcomp:
		return "PUBCOMP"
	case PacketSubscribe:
		return "SUBSCRIBE"
	case PacketSuback:
		return "SUBACK"
	case PacketUnsubscribe:
		return "UNSUBSCRIBE"
	case PacketUnsuback:
		return "UNSUBACK"
	case PacketPingreq:
		return "PINGREQ"
	case PacketPingresp:
		return "PINGRESP"
	case PacketDisconnect:
		return "DISCONNECT"
	default:
		return "RESERVED"
	}
}

// PacketFlags holds the 4 flag bits that accompany a PacketType in a fixed
// header byte: RETAIN (bit 0), QoS (bits 2:1), DUP (bit 3).
type PacketFlags byte

// QoS extracts the QoS level encoded in a PUBLISH packet's flags.
func (f PacketFlags) QoS() QoSLevel { return QoSLevel(f>>1) & 0b11 }

// DUP reports the duplicate-delivery flag of a PUBLISH packet.
func (f PacketFlags) DUP() bool { return f&0b1000 != 0 }

// RETAIN reports the retain flag of a PUBLISH packet.
func (f PacketFlags) RETAIN() bool { return f&0b1 != 0 }

// NewPublishFlags builds the flags nibble for a PUBLISH fixed header.
func NewPublishFlags(qos QoSLevel, dup, retain bool) (PacketFlags, error) {
	if !qos.valid() {
		return 0, errInvalidDataf("QoS level %d out of range 0..2", qos)
	}
	var f PacketFlags
	if dup {
		f |= 0b1000
	}
	f |= PacketFlags(qos&0b11) << 1
	if retain {
		f |= 0b1
	}
	return f, nil
}

// validateFlags checks the fixed header flags nibble is one of the values
// the MQTT spec permits for packet type p. PUBLISH accepts any combination
// except one encoding the reserved QoS 3; PUBREL/SUBSCRIBE/UNSUBSCRIBE require exactly 0b0010; every other type
// requires 0.
func (p PacketType) validateFlags(flags PacketFlags) error {
	if p == PacketPublish {
		if !flags.QoS().valid() {
			return errInvalidDataf("PUBLISH flags encode reserved QoS 3")
		}
		return nil
	}
	isPubrelSubUnsub := p == PacketPubrel || p == PacketSubscribe || p == PacketUnsubscribe
	if isPubrelSubUnsub {
		if flags != flagsPubrelSubUnsub {
			return errInvalidDataf("%s requires reserved flags 0b0010, got %04b", p, flags)
		}
		return nil
	}
	if flags != 0 {
		return errInvalidDataf("%s requires flags 0, got %04b", p, flags)
	}
	return nil
}

// QoSLevel is the Quality of Service level requested for message delivery.
type QoSLevel uint8

const (
	// QoS0 delivers the message at most once, with no acknowledgement.
	QoS0 QoSLevel = iota
	// QoS1 delivers the message at least once, acknowledged by PUBACK.
	QoS1
	// QoS2 delivers the message exactly once via the PUBREC/PUBREL/PUBCOMP exchange.
	QoS2
	reservedQoS3
	// QoSSubfail marks a failed subscription in a SUBACK return code. It is
	// never a valid QoS to encode into a fixed header.
	QoSSubfail QoSLevel = 0x80
)

func (q QoSLevel) valid() bool { return q == QoS0 || q == QoS1 || q == QoS2 }

func (q QoSLevel) String() string {
	switch q {
	case QoS0:
		return "QoS0"
	case QoS1:
		return "QoS1"
	case QoS2:
		return "QoS2"
	case QoSSubfail:
		return "subscribe-failure"
	default:
		return "invalid-QoS"
	}
}

// ConnectReturnCode is the second byte of a CONNACK variable header.
type ConnectReturnCode uint8

const (
	ReturnCodeAccepted ConnectReturnCode = iota
	ReturnCodeUnacceptableProtocol
	ReturnCodeIdentifierRejected
	ReturnCodeServerUnavailable
	ReturnCodeBadUserCredentials
	ReturnCodeUnauthorized
	minInvalidReturnCode
)

func (c ConnectReturnCode) String() string {
	switch c {
	case ReturnCodeAccepted:
		return "connection accepted"
	case ReturnCodeUnacceptableProtocol:
		return "unacceptable protocol version"
	case ReturnCodeIdentifierRejected:
		return "identifier rejected"
	case ReturnCodeServerUnavailable:
		return "server unavailable"
	case ReturnCodeBadUserCredentials:
		return "bad username or password"
	case ReturnCodeUnauthorized:
		return "not authorized"
	default:
		return "unrecognized return code"
	}
}
