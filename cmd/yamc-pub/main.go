// Command yamc-pub connects to a broker, publishes a single message, and
// exits — the publish-side counterpart to yamc_pub.c in the original
// source, rebuilt around yamc.Instance instead of a bare socket loop.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/klower/yamc-go"
	"github.com/klower/yamc-go/internal/watchdog"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	cmd := &cli.Command{
		Name:  "yamc-pub",
		Usage: "publish a single MQTT message and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "broker", Aliases: []string{"b"}, Value: "127.0.0.1:1883", Usage: "broker address host:port"},
			&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Required: true, Usage: "topic to publish to"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Required: true, Usage: "payload to send"},
			&cli.IntFlag{Name: "qos", Aliases: []string{"q"}, Value: 0, Usage: "QoS level 0, 1 or 2"},
			&cli.BoolFlag{Name: "retain", Aliases: []string{"r"}, Usage: "set the retain flag"},
			&cli.StringFlag{Name: "client-id", Aliases: []string{"i"}, Usage: "client identifier, defaults to a random UUID"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "enable debug logging"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	clientID := cmd.String("client-id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	conn, err := net.Dial("tcp", cmd.String("broker"))
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	wd := watchdog.New(20*time.Second, func() {
		logger.Warn("keepalive watchdog expired, closing connection")
		conn.Close()
	})

	done := make(chan error, 1)
	var connacked, acked bool

	qos := yamc.QoSLevel(cmd.Int("qos"))
	topic := []byte(cmd.String("topic"))
	payload := []byte(cmd.String("message"))
	retain := cmd.Bool("retain")

	var inst *yamc.Instance
	cfg := yamc.DefaultConfig()
	cfg.Logger = logger.Sugar()
	cfg.Handlers = yamc.Handlers{
		Write: func(p []byte) error {
			_, err := conn.Write(p)
			return err
		},
		Disconnect: func(err error) {
			select {
			case done <- err:
			default:
			}
		},
		TimeoutPat:  wd.Pat,
		TimeoutStop: wd.Stop,
		Packet: func(inst *yamc.Instance, pkt *yamc.Packet) {
			switch pkt.Header.Type {
			case yamc.PacketConnack:
				if pkt.Connack.ReturnCode != yamc.ReturnCodeAccepted {
					done <- fmt.Errorf("broker rejected connect: %s", pkt.Connack.ReturnCode)
					return
				}
				connacked = true
				if _, err := inst.WritePublish(topic, payload, qos, false, retain); err != nil {
					done <- err
					return
				}
				if qos == yamc.QoS0 {
					done <- nil
				}
			case yamc.PacketPuback, yamc.PacketPubcomp:
				acked = true
				done <- nil
			case yamc.PacketPubrec:
				if err := inst.WritePubrel(pkt.PacketID); err != nil {
					done <- err
				}
			}
		},
	}
	inst = yamc.NewInstance(cfg)

	if err := inst.WriteConnect(yamc.VariablesConnect{
		CleanSession: true,
		KeepAlive:    20,
		ClientID:     []byte(clientID),
	}); err != nil {
		return fmt.Errorf("write connect: %w", err)
	}

	go readLoop(conn, inst, done)

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	if !connacked {
		return fmt.Errorf("connection closed before CONNACK")
	}
	if qos != yamc.QoS0 && !acked {
		return fmt.Errorf("connection closed before publish was acknowledged")
	}
	return inst.WriteDisconnect()
}

// readLoop feeds bytes from conn into inst until the connection closes,
// pushing whatever net.Conn.Read returns straight into Feed rather than
// blocking for a complete packet.
func readLoop(conn net.Conn, inst *yamc.Instance, done chan<- error) {
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if _, ferr := inst.Feed(buf[:n]); ferr != nil {
				select {
				case done <- ferr:
				default:
				}
				return
			}
		}
		if err != nil {
			select {
			case done <- nil:
			default:
			}
			return
		}
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
