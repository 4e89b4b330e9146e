package yamc

// This file holds the per-packet-type payload structures: the outbound
// "Variables" types a caller fills in to build a packet with Instance's
// encoder, and Packet, the tagged structure the decoder hands to
// Handlers.Packet.

const (
	protocolName         = "MQTT"
	protocolLevel   byte = 4
	connectVarHeaderSize = 10 // 2+4 protocol name, 1 level, 1 flags, 2 keepalive.
)

// VariablesConnect is the variable header and payload of an outbound
// CONNECT packet. String fields are borrowed views into caller-owned
// storage, read once during the send call.
type VariablesConnect struct {
	CleanSession bool
	WillRetain   bool
	WillQoS      QoSLevel
	KeepAlive    uint16

	// ClientID may be empty only if CleanSession is true.
	ClientID []byte
	// WillTopic/WillMessage must both be set, or both left empty.
	WillTopic   []byte
	WillMessage []byte
	// Password requires Username to also be set.
	Username []byte
	Password []byte
}

func (v *VariablesConnect) willFlag() bool { return len(v.WillTopic) > 0 || len(v.WillMessage) > 0 }

// flags builds the CONNECT flags byte from the struct's fields.
func (v *VariablesConnect) flags() byte {
	var f byte
	if len(v.Username) > 0 {
		f |= 1 << 7
	}
	if len(v.Password) > 0 {
		f |= 1 << 6
	}
	if v.willFlag() {
		if v.WillRetain {
			f |= 1 << 5
		}
		f |= byte(v.WillQoS&0b11) << 3
		f |= 1 << 2
	}
	if v.CleanSession {
		f |= 1 << 1
	}
	return f
}

// Validate checks that a will requires both will fields, a password
// requires a username, and a non-clean session requires a client
// identifier.
func (v *VariablesConnect) Validate() error {
	hasWillTopic, hasWillMsg := len(v.WillTopic) > 0, len(v.WillMessage) > 0
	if hasWillTopic != hasWillMsg {
		return errInvalidDataf("CONNECT: will topic and will message must both be present or both absent")
	}
	if len(v.Password) > 0 && len(v.Username) == 0 {
		return errInvalidDataf("CONNECT: password flag requires username to also be set")
	}
	if !v.WillQoS.valid() {
		return errInvalidDataf("CONNECT: will QoS %d out of range 0..2", v.WillQoS)
	}
	if len(v.ClientID) == 0 && !v.CleanSession {
		return errInvalidDataf("CONNECT: empty client-id requires clean-session")
	}
	return nil
}

// Size returns the Remaining Length contribution of this CONNECT: the fixed
// 10-byte variable header, plus 2+length for each present string field,
// including a 2-byte zero-length client-id when it is empty.
func (v *VariablesConnect) Size() int {
	n := connectVarHeaderSize + mqttStringSize(v.ClientID)
	if v.willFlag() {
		n += mqttStringSize(v.WillTopic) + mqttStringSize(v.WillMessage)
	}
	if len(v.Username) > 0 {
		n += mqttStringSize(v.Username)
		if len(v.Password) > 0 {
			n += mqttStringSize(v.Password)
		}
	}
	return n
}

// VariablesConnack is the 2-byte variable header of an inbound CONNACK.
type VariablesConnack struct {
	SessionPresent bool
	ReturnCode     ConnectReturnCode
}

func decodeConnackVars(body []byte) (VariablesConnack, error) {
	if len(body) != 2 {
		return VariablesConnack{}, errCannotParsef("CONNACK body must be exactly 2 bytes, got %d", len(body))
	}
	return VariablesConnack{
		SessionPresent: body[0]&1 != 0,
		ReturnCode:     ConnectReturnCode(body[1]),
	}, nil
}

// VariablesPublish carries an outbound or inbound PUBLISH's topic, packet
// identifier (only meaningful for QoS>0) and payload. On decode, Topic and
// Payload are borrowed slices into the instance's receive buffer, valid
// only for the duration of the Handlers.Packet callback. On encode, they
// are borrowed from caller storage.
type VariablesPublish struct {
	Topic            []byte
	PacketIdentifier uint16
	Payload          []byte
}

// Validate checks the one structural rule the encoder enforces for
// PUBLISH: the topic must be non-empty.
func (v *VariablesPublish) Validate() error {
	if len(v.Topic) == 0 {
		return errInvalidDataf("PUBLISH: topic must be non-empty")
	}
	return nil
}

// Size returns the Remaining Length contribution of the PUBLISH variable
// header (topic plus, for qos>0, the 2-byte packet identifier). It does
// not include the payload, whose length is Header.RemainingLength minus
// this value.
func (v *VariablesPublish) Size(qos QoSLevel) int {
	n := mqttStringSize(v.Topic)
	if qos != QoS0 {
		n += 2
	}
	return n
}

func decodePublishVars(body []byte, qos QoSLevel) (VariablesPublish, error) {
	topic, n, err := decodeMQTTString(body, false)
	if err != nil {
		return VariablesPublish{}, err
	}
	var pid uint16
	if qos != QoS0 {
		if len(body) < n+2 {
			return VariablesPublish{}, errCannotParsef("PUBLISH: body too short for packet identifier")
		}
		pid = uint16(body[n])<<8 | uint16(body[n+1])
		n += 2
	}
	return VariablesPublish{Topic: topic, PacketIdentifier: pid, Payload: body[n:]}, nil
}

// SubscribeRequest is one topic filter / requested-QoS pair in a SUBSCRIBE
// packet's payload.
type SubscribeRequest struct {
	Topic []byte
	QoS   QoSLevel
}

// VariablesSubscribe is the variable header and payload of an outbound
// SUBSCRIBE packet.
type VariablesSubscribe struct {
	PacketIdentifier uint16
	TopicFilters     []SubscribeRequest
}

// Validate checks the list is non-empty and every topic filter is
// non-empty.
func (v *VariablesSubscribe) Validate() error {
	if len(v.TopicFilters) == 0 {
		return errInvalidDataf("SUBSCRIBE: payload must contain at least one topic filter")
	}
	for _, tf := range v.TopicFilters {
		if len(tf.Topic) == 0 {
			return errInvalidDataf("SUBSCRIBE: topic filter must be non-empty")
		}
		if !tf.QoS.valid() {
			return errInvalidDataf("SUBSCRIBE: requested QoS %d out of range 0..2", tf.QoS)
		}
	}
	return nil
}

// Size returns the Remaining Length contribution: 2-byte packet identifier
// plus, per topic filter, its MQTT string size and one requested-QoS byte.
func (v *VariablesSubscribe) Size() int {
	n := 2
	for _, tf := range v.TopicFilters {
		n += mqttStringSize(tf.Topic) + 1
	}
	return n
}

// VariablesUnsubscribe is the variable header and payload of an outbound
// UNSUBSCRIBE packet.
type VariablesUnsubscribe struct {
	PacketIdentifier uint16
	Topics           [][]byte
}

// Validate checks the list is non-empty and every topic is non-empty.
func (v *VariablesUnsubscribe) Validate() error {
	if len(v.Topics) == 0 {
		return errInvalidDataf("UNSUBSCRIBE: payload must contain at least one topic")
	}
	for _, t := range v.Topics {
		if len(t) == 0 {
			return errInvalidDataf("UNSUBSCRIBE: topic must be non-empty")
		}
	}
	return nil
}

// Size returns the Remaining Length contribution: 2-byte packet identifier
// plus each topic's MQTT string size.
func (v *VariablesUnsubscribe) Size() int {
	n := 2
	for _, t := range v.Topics {
		n += mqttStringSize(t)
	}
	return n
}

// VariablesSuback is the variable header and payload of an inbound SUBACK:
// a packet identifier and one return code per requested topic filter, in
// request order. 0x00/0x01/0x02 signal success at the granted QoS;
// QoSSubfail (0x80) signals the broker rejected that subscription.
type VariablesSuback struct {
	PacketIdentifier uint16
	ReturnCodes      []QoSLevel
}

func decodeSubackVars(body []byte) (VariablesSuback, error) {
	if len(body) < 3 {
		return VariablesSuback{}, errCannotParsef("SUBACK body must be at least 3 bytes, got %d", len(body))
	}
	pid := uint16(body[0])<<8 | uint16(body[1])
	codes := make([]QoSLevel, len(body)-2)
	for i, b := range body[2:] {
		codes[i] = QoSLevel(b)
	}
	return VariablesSuback{PacketIdentifier: pid, ReturnCodes: codes}, nil
}

// Packet is the tagged structure the decoder hands to Handlers.Packet once
// a complete, enabled packet has been assembled. Only the fields relevant
// to Header.Type are populated; the rest are zero value. String/payload
// fields point into the instance's receive buffer and must not be
// retained past the callback.
type Packet struct {
	Header   Header
	Connack  VariablesConnack
	Publish  VariablesPublish
	Suback   VariablesSuback
	PacketID uint16 // valid for PUBACK, PUBREC, PUBREL, PUBCOMP, UNSUBACK.
}
