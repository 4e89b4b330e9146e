package yamc

// decodePacketBody parses the body already accumulated in buf (exactly
// hdr.RemainingLength bytes) into a Packet. It only implements the packet
// types a client ever receives: CONNACK, PUBLISH, PUBACK/PUBREC/PUBREL/
// PUBCOMP/UNSUBACK, SUBACK, PINGRESP — a client-side library never decodes
// CONNECT/SUBSCRIBE/UNSUBSCRIBE/DISCONNECT/PINGREQ, since it only ever
// sends those.
func decodePacketBody(hdr Header, buf []byte) (Packet, error) {
	pkt := Packet{Header: hdr}
	switch hdr.Type {
	case PacketConnack:
		vc, err := decodeConnackVars(buf)
		if err != nil {
			return Packet{}, err
		}
		pkt.Connack = vc

	case PacketPublish:
		vp, err := decodePublishVars(buf, hdr.Flags.QoS())
		if err != nil {
			return Packet{}, err
		}
		pkt.Publish = vp

	case PacketPuback, PacketPubrec, PacketPubrel, PacketPubcomp, PacketUnsuback:
		if len(buf) != 2 {
			return Packet{}, errCannotParsef("%s body must be exactly 2 bytes, got %d", hdr.Type, len(buf))
		}
		pkt.PacketID = uint16(buf[0])<<8 | uint16(buf[1])

	case PacketSuback:
		vs, err := decodeSubackVars(buf)
		if err != nil {
			return Packet{}, err
		}
		pkt.Suback = vs

	case PacketPingresp:
		if len(buf) != 0 {
			return Packet{}, errCannotParsef("PINGRESP must have no body, got %d bytes", len(buf))
		}

	default:
		return Packet{}, errCannotParsef("%s is never received by a client", hdr.Type)
	}
	return pkt, nil
}
