package yamc

// This file is the outbound half of the library: one method per packet
// type a client ever sends, each building into Instance.txBuf and
// flushing it through Handlers.Write. Packet identifiers for PUBLISH
// (QoS>0), SUBSCRIBE and UNSUBSCRIBE are allocated here via nextPacketID;
// the four acknowledgement writers take the identifier from the inbound
// packet they are answering instead.

// growTxBuf returns inst.txBuf resized to exactly n bytes, reusing the
// existing backing array when it is large enough.
func (inst *Instance) growTxBuf(n int) []byte {
	if cap(inst.txBuf) < n {
		inst.txBuf = make([]byte, n)
	} else {
		inst.txBuf = inst.txBuf[:n]
	}
	return inst.txBuf
}

// flush hands buf to Handlers.Write, wrapping a non-nil error as
// ErrInvalidState.
func (inst *Instance) flush(buf []byte) error {
	if inst.handlers.Write == nil {
		return nil
	}
	if err := inst.handlers.Write(buf); err != nil {
		return errInvalidState(err)
	}
	return nil
}

// WriteConnect sends a CONNECT packet built from v. Returns ErrInvalidData
// if v fails its structural validation.
func (inst *Instance) WriteConnect(v VariablesConnect) error {
	if err := v.Validate(); err != nil {
		return err
	}
	remaining := v.Size()
	hdr, err := NewHeader(PacketConnect, 0, uint32(remaining))
	if err != nil {
		return err
	}
	buf := inst.growTxBuf(hdr.Size() + remaining)
	n := hdr.Put(buf)
	n += encodeMQTTString(buf[n:], []byte(protocolName))
	buf[n] = protocolLevel
	n++
	buf[n] = v.flags()
	n++
	buf[n] = byte(v.KeepAlive >> 8)
	buf[n+1] = byte(v.KeepAlive)
	n += 2
	n += encodeMQTTString(buf[n:], v.ClientID)
	if v.willFlag() {
		n += encodeMQTTString(buf[n:], v.WillTopic)
		n += encodeMQTTString(buf[n:], v.WillMessage)
	}
	if len(v.Username) > 0 {
		n += encodeMQTTString(buf[n:], v.Username)
		if len(v.Password) > 0 {
			n += encodeMQTTString(buf[n:], v.Password)
		}
	}
	return inst.flush(buf[:n])
}

// WritePublish sends a PUBLISH packet carrying topic/payload at the given
// QoS, dup and retain flags. For QoS>0 a fresh packet identifier is
// allocated and returned; for QoS0 the returned identifier is always 0,
// since MQTT does not carry one on QoS0 PUBLISH.
func (inst *Instance) WritePublish(topic, payload []byte, qos QoSLevel, dup, retain bool) (packetID uint16, err error) {
	v := VariablesPublish{Topic: topic, Payload: payload}
	if err := v.Validate(); err != nil {
		return 0, err
	}
	flags, err := NewPublishFlags(qos, dup, retain)
	if err != nil {
		return 0, err
	}
	if qos != QoS0 {
		packetID = inst.nextPacketID()
	}
	remaining := v.Size(qos) + len(payload)
	hdr, err := NewHeader(PacketPublish, flags, uint32(remaining))
	if err != nil {
		return 0, err
	}
	buf := inst.growTxBuf(hdr.Size() + remaining)
	n := hdr.Put(buf)
	n += encodeMQTTString(buf[n:], topic)
	if qos != QoS0 {
		buf[n] = byte(packetID >> 8)
		buf[n+1] = byte(packetID)
		n += 2
	}
	n += copy(buf[n:], payload)
	if err := inst.flush(buf[:n]); err != nil {
		return 0, err
	}
	return packetID, nil
}

// WriteSubscribe sends a SUBSCRIBE packet requesting filters, allocating
// and returning a fresh packet identifier.
func (inst *Instance) WriteSubscribe(filters []SubscribeRequest) (packetID uint16, err error) {
	v := VariablesSubscribe{TopicFilters: filters}
	if err := v.Validate(); err != nil {
		return 0, err
	}
	packetID = inst.nextPacketID()
	v.PacketIdentifier = packetID
	remaining := v.Size()
	hdr, err := NewHeader(PacketSubscribe, flagsPubrelSubUnsub, uint32(remaining))
	if err != nil {
		return 0, err
	}
	buf := inst.growTxBuf(hdr.Size() + remaining)
	n := hdr.Put(buf)
	buf[n] = byte(packetID >> 8)
	buf[n+1] = byte(packetID)
	n += 2
	for _, f := range filters {
		n += encodeMQTTString(buf[n:], f.Topic)
		buf[n] = byte(f.QoS)
		n++
	}
	if err := inst.flush(buf[:n]); err != nil {
		return 0, err
	}
	return packetID, nil
}

// WriteUnsubscribe sends an UNSUBSCRIBE packet for topics, allocating and
// returning a fresh packet identifier.
func (inst *Instance) WriteUnsubscribe(topics [][]byte) (packetID uint16, err error) {
	v := VariablesUnsubscribe{Topics: topics}
	if err := v.Validate(); err != nil {
		return 0, err
	}
	packetID = inst.nextPacketID()
	v.PacketIdentifier = packetID
	remaining := v.Size()
	hdr, err := NewHeader(PacketUnsubscribe, flagsPubrelSubUnsub, uint32(remaining))
	if err != nil {
		return 0, err
	}
	buf := inst.growTxBuf(hdr.Size() + remaining)
	n := hdr.Put(buf)
	buf[n] = byte(packetID >> 8)
	buf[n+1] = byte(packetID)
	n += 2
	for _, t := range topics {
		n += encodeMQTTString(buf[n:], t)
	}
	if err := inst.flush(buf[:n]); err != nil {
		return 0, err
	}
	return packetID, nil
}

// writeIdentified sends the fixed header plus a single 2-byte packet
// identifier: the shape shared by PUBACK, PUBREC, PUBREL and PUBCOMP.
// Unlike WritePublish/WriteSubscribe/WriteUnsubscribe, the identifier is
// the caller's — an acknowledgement must echo the identifier it is
// acknowledging, never allocate its own.
func (inst *Instance) writeIdentified(pt PacketType, flags PacketFlags, packetID uint16) error {
	hdr, err := NewHeader(pt, flags, 2)
	if err != nil {
		return err
	}
	buf := inst.growTxBuf(hdr.Size() + 2)
	n := hdr.Put(buf)
	buf[n] = byte(packetID >> 8)
	buf[n+1] = byte(packetID)
	return inst.flush(buf[:n+2])
}

// WritePuback acknowledges a QoS1 PUBLISH identified by packetID.
func (inst *Instance) WritePuback(packetID uint16) error {
	return inst.writeIdentified(PacketPuback, 0, packetID)
}

// WritePubrec begins the QoS2 release handshake for packetID.
func (inst *Instance) WritePubrec(packetID uint16) error {
	return inst.writeIdentified(PacketPubrec, 0, packetID)
}

// WritePubrel continues the QoS2 release handshake for packetID.
func (inst *Instance) WritePubrel(packetID uint16) error {
	return inst.writeIdentified(PacketPubrel, flagsPubrelSubUnsub, packetID)
}

// WritePubcomp completes the QoS2 release handshake for packetID.
func (inst *Instance) WritePubcomp(packetID uint16) error {
	return inst.writeIdentified(PacketPubcomp, 0, packetID)
}

// writeSimple sends a fixed-header-only packet: PINGREQ or DISCONNECT.
func (inst *Instance) writeSimple(pt PacketType) error {
	hdr, err := NewHeader(pt, 0, 0)
	if err != nil {
		return err
	}
	buf := inst.growTxBuf(hdr.Size())
	n := hdr.Put(buf)
	return inst.flush(buf[:n])
}

// WritePingreq sends a PINGREQ keepalive packet.
func (inst *Instance) WritePingreq() error { return inst.writeSimple(PacketPingreq) }

// WriteDisconnect sends a DISCONNECT packet, the client's own clean
// shutdown signal (distinct from Handlers.Disconnect, which reports the
// local framer giving up on the connection).
func (inst *Instance) WriteDisconnect() error { return inst.writeSimple(PacketDisconnect) }
