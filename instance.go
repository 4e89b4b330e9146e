package yamc

import "go.uber.org/zap"

// Handlers is the small table of host-supplied functions an Instance calls
// into. None of Write/Disconnect/TimeoutPat/TimeoutStop/Packet touch the
// network, a timer, or a log directly — the host owns all of that; the
// core only calls back through these five entry points. A Go closure
// captures whatever state the host needs — no global state, no context
// pointer to thread through every call.
type Handlers struct {
	// Write sends bytes to the transport. Each WriteXxx method builds the
	// complete packet first and calls Write exactly once with it. A
	// non-nil error is surfaced to the encoder's caller as ErrInvalidState.
	Write func(p []byte) error
	// Disconnect is invoked once, with the reason, when the framer hits a
	// fatal condition (bad packet type, illegal fixed-header flags,
	// malformed Remaining Length, Remaining Length over the MQTT maximum).
	// The Instance owns no timer, so watchdog expiry never reaches
	// Disconnect through the core. The framer does not attempt recovery
	// after this call; tearing down the transport is the host's
	// responsibility.
	Disconnect func(err error)
	// TimeoutPat starts or prolongs the watchdog. Called at the start of
	// every Feed call and again whenever a packet finishes (or is skipped)
	// with more bytes of the same call still pending. May be nil, in which
	// case Feed never times anything out.
	TimeoutPat func()
	// TimeoutStop stops the watchdog. Called when a packet is fully
	// assembled, so a slow Packet callback never trips it. May be nil.
	TimeoutStop func()
	// Packet is invoked once per successfully decoded, enabled packet.
	// pkt's string/payload fields are borrowed views into the instance's
	// receive buffer and are valid only for the duration of this call.
	Packet func(inst *Instance, pkt *Packet)
}

// EnabledPackets is a bitset of which decoded packet types invoke
// Handlers.Packet, exposed as a small set of named methods over a single
// integer rather than a raw bitfield struct. Disabled types still have
// their bytes consumed by the framer, they just never reach the callback.
type EnabledPackets uint16

// AllPackets enables every packet type a client can receive.
const AllPackets EnabledPackets = 1<<PacketConnack | 1<<PacketPublish | 1<<PacketPuback |
	1<<PacketPubrec | 1<<PacketPubrel | 1<<PacketPubcomp | 1<<PacketSuback |
	1<<PacketUnsuback | 1<<PacketPingresp

func (e EnabledPackets) Has(pt PacketType) bool { return e&(1<<pt) != 0 }
func (e *EnabledPackets) Enable(pt PacketType)  { *e |= 1 << pt }
func (e *EnabledPackets) Disable(pt PacketType) { *e &^= 1 << pt }

// Config configures a new Instance. ReadBuffer sets the bounded receive
// buffer capacity: any inbound packet whose Remaining Length exceeds
// len(ReadBuffer) is drained without ever touching the buffer, so memory
// use never grows with an oversized or malicious packet.
//
// The outbound path builds each packet into a scratch buffer that the
// Instance owns, reuses across Write calls and grows as needed (see
// encode.go); Config has no setting for it.
type Config struct {
	ReadBuffer []byte
	Handlers   Handlers
	Enabled    EnabledPackets
	// Logger, if set, receives debug-level diagnostics: oversized packets
	// being skipped, disabled packet types and malformed packets being
	// dropped. Nil means silent; never required for correct operation.
	Logger *zap.SugaredLogger
}

const defaultReadBufferLen = 1024

// DefaultConfig returns a Config with a defaultReadBufferLen-byte receive
// buffer and every packet type enabled. Handlers and Logger are left zero
// for the caller to fill in.
func DefaultConfig() Config {
	return Config{
		ReadBuffer: make([]byte, defaultReadBufferLen),
		Enabled:    AllPackets,
	}
}

// parserState is one of the five states of the incoming-packet framer.
type parserState uint8

const (
	stateIdle parserState = iota
	stateFixedHeader
	stateVariableData
	stateDone
	stateSkipPacket
)

// Instance ties together the incoming-packet parser state machine, the
// decoder, the encoder and the packet-identifier bookkeeping a client
// needs. It owns exactly one receive buffer and one parser state; it is
// not safe for concurrent use — callers invoking Feed and the WriteXxx
// methods from multiple goroutines must provide their own locking.
type Instance struct {
	handlers Handlers
	enabled  EnabledPackets
	logger   *zap.SugaredLogger

	rx       []byte // bounded receive buffer, capacity fixed at NewInstance.
	wrPos    int    // bytes written into rx for the current packet.
	state    parserState
	typeByte byte // first byte of the fixed header, valid from stateFixedHeader on.
	hdr      Header
	vi       varintAccum
	skipLeft uint32 // bytes still to discard in stateSkipPacket.

	lastPacketID uint16

	txBuf []byte // scratch buffer reused by the encoder.
}

// NewInstance builds an Instance from cfg. The parser state and the
// packet-id counter both start zeroed.
func NewInstance(cfg Config) *Instance {
	buf := cfg.ReadBuffer
	if len(buf) == 0 {
		buf = make([]byte, defaultReadBufferLen)
	}
	return &Instance{
		handlers: cfg.Handlers,
		enabled:  cfg.Enabled,
		logger:   cfg.Logger,
		rx:       buf,
		txBuf:    make([]byte, 0, 256),
	}
}

// SetEnabled replaces the set of packet types that invoke Handlers.Packet.
func (inst *Instance) SetEnabled(e EnabledPackets) { inst.enabled = e }

// Enabled returns the current set of packet types that invoke Handlers.Packet.
func (inst *Instance) Enabled() EnabledPackets { return inst.enabled }

func (inst *Instance) logf(template string, args ...any) {
	if inst.logger != nil {
		inst.logger.Debugf(template, args...)
	}
}

// nextPacketID allocates the next outbound packet identifier, skipping
// zero on wrap-around: MQTT forbids a packet identifier of 0, and a naive
// increment-and-wrap would produce exactly that once every 65536 calls.
func (inst *Instance) nextPacketID() uint16 {
	inst.lastPacketID++
	if inst.lastPacketID == 0 {
		inst.lastPacketID = 1
	}
	return inst.lastPacketID
}
