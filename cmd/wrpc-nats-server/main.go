// Command wrpc-nats-server serves the wrpc-examples:echo-stream/handler
// "echo" export over NATS: it decodes the two incoming streams and
// re-streams each item straight back to the caller.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/wrpc-go/wrpc/transport"
	"github.com/wrpc-go/wrpc/wrpclog"
	"github.com/wrpc-go/wrpc/wrpcnats"
)

func main() {
	app := &cli.App{
		Name:  "wrpc-nats-server",
		Usage: "serve wrpc-examples:echo-stream/handler.echo over NATS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "nats",
				Usage: "NATS server address",
				Value: "nats://127.0.0.1:4222",
			},
			&cli.StringFlag{
				Name:  "instance",
				Usage: "export instance prefix to serve",
				Value: "rust",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		wrpclog.Fatal(err)
	}
}

func run(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client, err := wrpcnats.NewClient(wrpcnats.Config{Address: c.String("nats")})
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer client.Close()

	instance := c.String("instance")
	name := "wrpc-examples:echo-stream/handler.echo"

	paramsTypes := []transport.Type{
		transport.StreamT(ptr(transport.U8())),
		transport.StreamT(ptr(transport.StringT())),
	}
	resultTypes := []transport.Type{
		transport.StreamT(ptr(transport.U8())),
		transport.StreamT(ptr(transport.StringT())),
	}

	wrpclog.Infof("serving %s on instance %q", name, instance)
	err = transport.Serve(ctx, client, instance, name, paramsTypes, resultTypes, echo)
	if err != nil {
		return fmt.Errorf("serve %s: %w", name, err)
	}
	return nil
}

func echo(ctx context.Context, params []transport.Value) ([]transport.Value, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("malformed echo params")
	}
	numbers := params[0].Stream
	words := params[1].Stream
	return []transport.Value{
		transport.StreamValue(numbers),
		transport.StreamValue(words),
	}, nil
}

func ptr[T any](v T) *T { return &v }
