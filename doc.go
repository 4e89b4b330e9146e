/*
Package yamc implements the client-side half of the MQTT v3.1.1 protocol:
a streaming decoder for inbound bytes, an encoder for outbound control
packets, and the small amount of session state (packet identifier
allocation, watchdog pats, QoS handshake steering) that sits between them.

The package does not open sockets, does not own a timer, and does not
reconnect. An [Instance] is handed bytes as they arrive over whatever
transport the host chose (TCP, TLS, a serial port, a test harness) via
[Instance.Feed], and it calls back into the host through the five
functions of [Handlers] to write bytes out, report a fatal framing
error, pat or stop a watchdog, and deliver a successfully decoded packet.

If you are new to MQTT start by reading packettype.go for the fixed
enumeration of control packet kinds, then instance.go for how a
connection's state is held.
*/
package yamc
