package yamc

import (
	"bytes"
	"testing"
)

// recordingHandlers accumulates every callback invocation so tests can
// assert on order and content without racing a real transport.
type recordingHandlers struct {
	disconnects []error
	pats        int
	stops       int
	packets     []Packet
	written     [][]byte
}

func (r *recordingHandlers) handlers() Handlers {
	return Handlers{
		Write: func(p []byte) error {
			cp := append([]byte(nil), p...)
			r.written = append(r.written, cp)
			return nil
		},
		Disconnect: func(err error) { r.disconnects = append(r.disconnects, err) },
		TimeoutPat: func() { r.pats++ },
		TimeoutStop: func() { r.stops++ },
		Packet: func(inst *Instance, pkt *Packet) {
			// Copy out of the borrowed buffer since it is only valid for
			// the duration of this call.
			cp := *pkt
			cp.Publish.Topic = append([]byte(nil), pkt.Publish.Topic...)
			cp.Publish.Payload = append([]byte(nil), pkt.Publish.Payload...)
			r.packets = append(r.packets, cp)
		},
	}
}

func newTestInstance(rh *recordingHandlers, bufLen int) *Instance {
	cfg := DefaultConfig()
	if bufLen > 0 {
		cfg.ReadBuffer = make([]byte, bufLen)
	}
	cfg.Handlers = rh.handlers()
	return NewInstance(cfg)
}

// connackBytes builds a well-formed CONNACK wire packet.
func connackBytes(sessionPresent bool, code ConnectReturnCode) []byte {
	sp := byte(0)
	if sessionPresent {
		sp = 1
	}
	return []byte{byte(PacketConnack) << 4, 2, sp, byte(code)}
}

func TestFeedConnackWholeInOneCall(t *testing.T) {
	rh := &recordingHandlers{}
	inst := newTestInstance(rh, 64)
	pkt := connackBytes(false, ReturnCodeAccepted)
	n, err := inst.Feed(pkt)
	if err != nil || n != len(pkt) {
		t.Fatalf("Feed = %d, %v", n, err)
	}
	if len(rh.packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(rh.packets))
	}
	if rh.packets[0].Header.Type != PacketConnack {
		t.Fatalf("type = %v", rh.packets[0].Header.Type)
	}
	if rh.stops != 1 {
		t.Fatalf("stops = %d, want 1", rh.stops)
	}
}

// TestFeedByteAtATime is the chopping-invariance property from the
// acceptance bar: feeding one byte per Feed call must produce exactly the
// same decoded packet as feeding it all at once.
func TestFeedByteAtATime(t *testing.T) {
	rh := &recordingHandlers{}
	inst := newTestInstance(rh, 64)
	pkt := connackBytes(true, ReturnCodeServerUnavailable)
	for _, b := range pkt {
		n, err := inst.Feed([]byte{b})
		if err != nil || n != 1 {
			t.Fatalf("Feed(%#x) = %d, %v", b, n, err)
		}
	}
	if len(rh.packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(rh.packets))
	}
	got := rh.packets[0].Connack
	if !got.SessionPresent || got.ReturnCode != ReturnCodeServerUnavailable {
		t.Fatalf("decoded %+v", got)
	}
}

// TestFeedMultiplePacketsOneCall exercises several packets arriving back
// to back in a single Feed call.
func TestFeedMultiplePacketsOneCall(t *testing.T) {
	rh := &recordingHandlers{}
	inst := newTestInstance(rh, 64)
	var buf bytes.Buffer
	buf.Write(connackBytes(false, ReturnCodeAccepted))
	buf.Write([]byte{byte(PacketPingresp) << 4, 0})
	buf.Write(connackBytes(true, ReturnCodeAccepted))

	n, err := inst.Feed(buf.Bytes())
	if err != nil || n != buf.Len() {
		t.Fatalf("Feed = %d, %v", n, err)
	}
	if len(rh.packets) != 3 {
		t.Fatalf("got %d packets, want 3", len(rh.packets))
	}
	if rh.packets[0].Header.Type != PacketConnack || rh.packets[1].Header.Type != PacketPingresp || rh.packets[2].Header.Type != PacketConnack {
		t.Fatalf("types = %v, %v, %v", rh.packets[0].Header.Type, rh.packets[1].Header.Type, rh.packets[2].Header.Type)
	}
	// A pat is expected at entry, plus one more re-entering IDLE with
	// further packets pending for each of the first two packets.
	if rh.pats < 3 {
		t.Fatalf("pats = %d, want at least 3", rh.pats)
	}
}

// TestFeedPublishQoS1 checks that a QoS1 PUBLISH fed in one call decodes
// to its topic, packet identifier and payload.
func TestFeedPublishQoS1(t *testing.T) {
	rh := &recordingHandlers{}
	inst := newTestInstance(rh, 64)
	topic := []byte("a/b")
	payload := []byte("hello")
	var body bytes.Buffer
	prefix := make([]byte, 2)
	prefix[0] = byte(len(topic) >> 8)
	prefix[1] = byte(len(topic))
	body.Write(prefix)
	body.Write(topic)
	body.Write([]byte{0x00, 0x05}) // packet id 5
	body.Write(payload)

	hdr, err := NewHeader(PacketPublish, mustFlags(QoS1, false, false), uint32(body.Len()))
	if err != nil {
		t.Fatalf("NewHeader: %v", err)
	}
	fixed := make([]byte, hdr.Size())
	hdr.Put(fixed)

	var wire bytes.Buffer
	wire.Write(fixed)
	wire.Write(body.Bytes())

	n, err := inst.Feed(wire.Bytes())
	if err != nil || n != wire.Len() {
		t.Fatalf("Feed = %d, %v", n, err)
	}
	if len(rh.packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(rh.packets))
	}
	got := rh.packets[0].Publish
	if string(got.Topic) != "a/b" || string(got.Payload) != "hello" || got.PacketIdentifier != 5 {
		t.Fatalf("decoded %+v", got)
	}
}

func mustFlags(qos QoSLevel, dup, retain bool) PacketFlags {
	f, err := NewPublishFlags(qos, dup, retain)
	if err != nil {
		panic(err)
	}
	return f
}

// TestFeedOversizedPacketSkipped is the bounded-memory property: a packet
// whose Remaining Length exceeds the receive buffer is drained without
// ever being copied into it, and does not invoke Handlers.Packet.
func TestFeedOversizedPacketSkipped(t *testing.T) {
	rh := &recordingHandlers{}
	inst := newTestInstance(rh, 8) // tiny buffer
	payload := bytes.Repeat([]byte{'x'}, 64)
	topic := []byte("t")
	remaining := 2 + len(topic) + len(payload) // QoS0 publish, no packet id

	hdr, err := NewHeader(PacketPublish, mustFlags(QoS0, false, false), uint32(remaining))
	if err != nil {
		t.Fatalf("NewHeader: %v", err)
	}
	fixed := make([]byte, hdr.Size())
	hdr.Put(fixed)

	var wire bytes.Buffer
	wire.Write(fixed)
	prefix := []byte{0x00, byte(len(topic))}
	wire.Write(prefix)
	wire.Write(topic)
	wire.Write(payload)

	// Followed by an unrelated PINGRESP, which must still be decoded
	// correctly after the oversized packet is skipped.
	wire.Write([]byte{byte(PacketPingresp) << 4, 0})

	n, err := inst.Feed(wire.Bytes())
	if err != nil || n != wire.Len() {
		t.Fatalf("Feed = %d, %v", n, err)
	}
	if len(rh.packets) != 1 || rh.packets[0].Header.Type != PacketPingresp {
		t.Fatalf("packets = %+v, want exactly one PINGRESP", rh.packets)
	}
}

// TestFeedInvalidPacketTypeDisconnects covers the fatal-condition path:
// an out-of-range packet type must call Handlers.Disconnect and return an
// error, not attempt to resynchronize.
func TestFeedInvalidPacketTypeDisconnects(t *testing.T) {
	rh := &recordingHandlers{}
	inst := newTestInstance(rh, 64)
	n, err := inst.Feed([]byte{0x00}) // type 0 is reserved
	if err == nil {
		t.Fatal("expected error for reserved packet type 0")
	}
	if n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
	if len(rh.disconnects) != 1 {
		t.Fatalf("disconnects = %d, want 1", len(rh.disconnects))
	}
}

// TestFeedMalformedVarintDisconnects covers four Remaining Length bytes
// that all carry the continuation bit: a fifth byte can never be valid in
// MQTT v3.1.1's Remaining Length encoding.
func TestFeedMalformedVarintDisconnects(t *testing.T) {
	rh := &recordingHandlers{}
	inst := newTestInstance(rh, 64)
	pkt := []byte{byte(PacketPingreq) << 4, 0xff, 0xff, 0xff, 0xff}
	_, err := inst.Feed(pkt)
	if err == nil {
		t.Fatal("expected error for a remaining length needing a fifth byte")
	}
	if len(rh.disconnects) != 1 {
		t.Fatalf("disconnects = %d, want 1", len(rh.disconnects))
	}
}

// TestFeedDisabledPacketDrainsWithoutDispatch checks that a disabled packet
// type still has its bytes fully consumed, it just never reaches
// Handlers.Packet.
func TestFeedDisabledPacketDrainsWithoutDispatch(t *testing.T) {
	rh := &recordingHandlers{}
	inst := newTestInstance(rh, 64)
	inst.SetEnabled(AllPackets &^ (1 << PacketConnack))

	var buf bytes.Buffer
	buf.Write(connackBytes(false, ReturnCodeAccepted))
	buf.Write([]byte{byte(PacketPingresp) << 4, 0})

	n, err := inst.Feed(buf.Bytes())
	if err != nil || n != buf.Len() {
		t.Fatalf("Feed = %d, %v", n, err)
	}
	if len(rh.packets) != 1 || rh.packets[0].Header.Type != PacketPingresp {
		t.Fatalf("packets = %+v, want exactly the PINGRESP", rh.packets)
	}
}
