package yamc

import "testing"

func TestNewHeaderRejectsBadType(t *testing.T) {
	if _, err := NewHeader(0, 0, 0); err == nil {
		t.Fatal("expected error for packet type 0")
	}
	if _, err := NewHeader(15, 0, 0); err == nil {
		t.Fatal("expected error for packet type 15")
	}
}

func TestNewHeaderRejectsBadFlags(t *testing.T) {
	if _, err := NewHeader(PacketSubscribe, 0, 2); err == nil {
		t.Fatal("expected error: SUBSCRIBE requires reserved flags 0b0010")
	}
	if _, err := NewHeader(PacketConnect, 1, 0); err == nil {
		t.Fatal("expected error: CONNECT requires flags 0")
	}
}

func TestNewHeaderRejectsOverlongRemainingLength(t *testing.T) {
	if _, err := NewHeader(PacketPingreq, 0, maxRemainingLengthValue+1); err == nil {
		t.Fatal("expected error for remaining length over the MQTT maximum")
	}
}

func TestHeaderPutSize(t *testing.T) {
	hdr, err := NewHeader(PacketPublish, 0b0010, 321)
	if err != nil {
		t.Fatalf("NewHeader: %v", err)
	}
	if hdr.Size() != 3 {
		t.Fatalf("Size() = %d, want 3 (1 type/flags + 2 varint bytes for 321)", hdr.Size())
	}
	buf := make([]byte, hdr.Size())
	n := hdr.Put(buf)
	if n != 3 {
		t.Fatalf("Put wrote %d bytes, want 3", n)
	}
	wantFirst := byte(PacketPublish)<<4 | 0b0010
	if buf[0] != wantFirst {
		t.Fatalf("first byte = %08b, want %08b", buf[0], wantFirst)
	}
	var v varintAccum
	v.reset()
	for _, b := range buf[1:3] {
		if _, err := v.feed(b); err != nil {
			t.Fatalf("feed: %v", err)
		}
	}
	if v.value != 321 {
		t.Fatalf("remaining length round-tripped to %d, want 321", v.value)
	}
}

func TestPacketTypeValidateFlags(t *testing.T) {
	if err := PacketPublish.validateFlags(PacketFlags(0b0010)); err != nil {
		t.Fatalf("PUBLISH QoS1 flags should validate: %v", err)
	}
	if err := PacketPublish.validateFlags(PacketFlags(0b0010 | 0b0001)); err != nil {
		t.Fatalf("PUBLISH QoS1+retain flags should validate: %v", err)
	}
	// QoS 3 is reserved and never valid.
	if err := PacketPublish.validateFlags(PacketFlags(0b0111)); err == nil {
		t.Fatal("expected error: PUBLISH flags encode reserved QoS 3")
	}
	if err := PacketPubrel.validateFlags(flagsPubrelSubUnsub); err != nil {
		t.Fatalf("PUBREL with reserved flags should validate: %v", err)
	}
	if err := PacketPingresp.validateFlags(0); err != nil {
		t.Fatalf("PINGRESP with flags 0 should validate: %v", err)
	}
}

func TestNewPublishFlagsRoundTrip(t *testing.T) {
	f, err := NewPublishFlags(QoS2, true, true)
	if err != nil {
		t.Fatalf("NewPublishFlags: %v", err)
	}
	if f.QoS() != QoS2 || !f.DUP() || !f.RETAIN() {
		t.Fatalf("flags = %04b, QoS=%v DUP=%v RETAIN=%v", f, f.QoS(), f.DUP(), f.RETAIN())
	}
	if _, err := NewPublishFlags(reservedQoS3, false, false); err == nil {
		t.Fatal("expected error for reserved QoS 3")
	}
}
