package yamc

// Feed drives the incoming-packet framer with the next chunk of bytes
// read from the transport, which may be a fragment of a packet, a single
// complete packet, several packets back to back, or any other chopping —
// the framer resumes from whatever state the previous call left it in.
// Feed is not reentrant: a single Instance must not have Feed called
// concurrently with itself or with its own WriteXxx methods from another
// goroutine.
//
// n is always len(p) unless a fatal framing error was hit, in which case n
// counts the bytes consumed up to and including the one that triggered
// it, and Handlers.Disconnect has
// already been called; the framer does not attempt to resynchronize and
// the Instance should be discarded.
func (inst *Instance) Feed(p []byte) (n int, err error) {
	inst.pat()
	i := 0
	for i < len(p) {
		switch inst.state {
		case stateIdle:
			b := p[i]
			i++
			pt := PacketType(b >> 4)
			flags := PacketFlags(b & 0x0f)
			if !pt.valid() {
				err = errCannotParsef("invalid packet type %d in fixed header", byte(pt))
				inst.fatal(err)
				return i, err
			}
			if verr := pt.validateFlags(flags); verr != nil {
				inst.fatal(verr)
				return i, verr
			}
			inst.typeByte = b
			inst.vi.reset()
			inst.state = stateFixedHeader

		case stateFixedHeader:
			gotRemainingLength := false
			for i < len(p) {
				b := p[i]
				i++
				done, verr := inst.vi.feed(b)
				if verr != nil {
					inst.fatal(verr)
					return i, verr
				}
				if done {
					gotRemainingLength = true
					break
				}
			}
			if !gotRemainingLength {
				// Input exhausted mid-varint; stay in stateFixedHeader for
				// the next Feed call.
				break
			}
			if ferr := inst.enterBody(); ferr != nil {
				inst.fatal(ferr)
				return i, ferr
			}
			if inst.state == stateIdle && i < len(p) {
				// Remaining Length was zero: completePacket already ran
				// inside enterBody and more packets may follow in p.
				inst.pat()
			}

		case stateVariableData:
			remaining := inst.hdr.RemainingLength - uint32(inst.wrPos)
			avail := uint32(len(p) - i)
			take := remaining
			if avail < take {
				take = avail
			}
			copy(inst.rx[inst.wrPos:], p[i:i+int(take)])
			inst.wrPos += int(take)
			i += int(take)
			if uint32(inst.wrPos) == inst.hdr.RemainingLength {
				inst.completePacket(inst.rx[:inst.wrPos])
				inst.state = stateIdle
				if i < len(p) {
					inst.pat()
				}
			}

		case stateSkipPacket:
			avail := uint32(len(p) - i)
			take := inst.skipLeft
			if avail < take {
				take = avail
			}
			i += int(take)
			inst.skipLeft -= take
			if inst.skipLeft == 0 {
				inst.state = stateIdle
				if i < len(p) {
					inst.pat()
				}
			}
		}
	}
	return i, nil
}

// enterBody is called once Remaining Length has finished decoding. It
// rejects a value over the MQTT v3.1.1 maximum, routes bodies too large for
// the receive buffer to stateSkipPacket so memory use stays bounded,
// dispatches immediately for a zero-length body, and otherwise starts
// accumulating into stateVariableData.
func (inst *Instance) enterBody() error {
	rl := inst.vi.value
	if rl > maxRemainingLengthValue {
		return errCannotParsef("remaining length %d exceeds MQTT v3.1.1 maximum %d", rl, maxRemainingLengthValue)
	}
	pt := PacketType(inst.typeByte >> 4)
	flags := PacketFlags(inst.typeByte & 0x0f)
	inst.hdr = Header{Type: pt, Flags: flags, RemainingLength: rl}
	inst.wrPos = 0

	switch {
	case rl == 0:
		inst.completePacket(nil)
		inst.state = stateIdle
	case int(rl) > len(inst.rx):
		inst.logf("packet %s remaining length %d exceeds %d byte receive buffer, skipping", pt, rl, len(inst.rx))
		inst.state = stateSkipPacket
		inst.skipLeft = rl
	default:
		inst.state = stateVariableData
	}
	return nil
}

// completePacket stops the watchdog, decodes body against inst.hdr (set by
// enterBody), and dispatches to Handlers.Packet if the type is enabled. A
// disabled type or a decode failure drains silently: the bytes have
// already been consumed by the framer, so there is nothing left to
// propagate but a log line.
func (inst *Instance) completePacket(body []byte) {
	if inst.handlers.TimeoutStop != nil {
		inst.handlers.TimeoutStop()
	}
	hdr := inst.hdr
	if !inst.enabled.Has(hdr.Type) {
		inst.logf("packet type %s received but not enabled, dropping", hdr.Type)
		return
	}
	pkt, err := decodePacketBody(hdr, body)
	if err != nil {
		inst.logf("dropping malformed %s: %v", hdr.Type, err)
		return
	}
	if inst.handlers.Packet != nil {
		inst.handlers.Packet(inst, &pkt)
	}
}

// fatal reports a framing error to Handlers.Disconnect and leaves the
// Instance's parser in stateIdle. The framer makes no attempt to
// resynchronize, so the Instance should not be fed more bytes after this —
// the caller is expected to tear down the transport.
func (inst *Instance) fatal(err error) {
	inst.state = stateIdle
	if inst.handlers.Disconnect != nil {
		inst.handlers.Disconnect(err)
	}
}

func (inst *Instance) pat() {
	if inst.handlers.TimeoutPat != nil {
		inst.handlers.TimeoutPat()
	}
}
