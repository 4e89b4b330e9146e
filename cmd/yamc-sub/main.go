// Command yamc-sub connects to a broker, subscribes to one topic filter,
// prints every PUBLISH it receives, and exits when the connection closes
// — it does not reconnect. The subscribe-side counterpart to yamc_sub.c
// in the original source.
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
	"golang.org/x/sync/errgroup"
)

func main() {
	cmd := &cli.Command{
		Name:  "yamc-sub",
		Usage: "subscribe to a topic filter and print incoming publishes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "broker", Aliases: []string{"b"}, Value: "127.0.0.1:1883", Usage: "broker address host:port"},
			&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Required: true, Usage: "topic filter to subscribe to"},
			&cli.IntFlag{Name: "qos", Aliases: []string{"q"}, Value: 0, Usage: "requested QoS level 0, 1 or 2"},
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

	closed := make(chan error, 1)
	topic := []byte(cmd.String("topic"))
	qos := yamc.QoSLevel(cmd.Int("qos"))

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
			case closed <- err:
			default:
			}
		},
		TimeoutPat:  wd.Pat,
		TimeoutStop: wd.Stop,
		Packet: func(inst *yamc.Instance, pkt *yamc.Packet) {
			switch pkt.Header.Type {
			case yamc.PacketConnack:
				if pkt.Connack.ReturnCode != yamc.ReturnCodeAccepted {
					select {
					case closed <- fmt.Errorf("broker rejected connect: %s", pkt.Connack.ReturnCode):
					default:
					}
					return
				}
				if _, err := inst.WriteSubscribe([]yamc.SubscribeRequest{{Topic: topic, QoS: qos}}); err != nil {
					select {
					case closed <- err:
					default:
					}
				}
			case yamc.PacketSuback:
				logger.Sugar().Infow("subscribed", "granted", pkt.Suback.ReturnCodes)
			case yamc.PacketPublish:
				fmt.Printf("%s: %s\n", pkt.Publish.Topic, pkt.Publish.Payload)
				if pkt.Header.Flags.QoS() == yamc.QoS1 {
					inst.WritePuback(pkt.Publish.PacketIdentifier) //nolint:errcheck
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

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return readLoop(conn, inst, closed)
	})
	g.Go(func() error {
		select {
		case err := <-closed:
			conn.Close()
			return err
		case <-gctx.Done():
			conn.Close()
			return gctx.Err()
		}
	})
	return g.Wait()
}

// readLoop feeds bytes from conn into inst until the connection closes,
// then reports the close (exactly once) on closed. There is no
// reconnect: once the loop returns, yamc-sub is done.
func readLoop(conn net.Conn, inst *yamc.Instance, closed chan<- error) error {
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if _, ferr := inst.Feed(buf[:n]); ferr != nil {
				select {
				case closed <- ferr:
				default:
				}
				return ferr
			}
		}
		if err != nil {
			select {
			case closed <- nil:
			default:
			}
			return nil
		}
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
