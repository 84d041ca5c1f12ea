// Command wrpc-nats-client invokes the wrpc-examples:echo-stream/handler
// "echo" export over NATS, sending a ten-item byte stream and a ten-item
// string stream and printing whatever the handler echoes back.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/wrpc-go/wrpc/transport"
	"github.com/wrpc-go/wrpc/wrpclog"
	"github.com/wrpc-go/wrpc/wrpcnats"
)

func main() {
	app := &cli.App{
		Name:  "wrpc-nats-client",
		Usage: "invoke wrpc-examples:echo-stream/handler.echo over NATS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "nats",
				Usage: "NATS server address",
				Value: "nats://127.0.0.1:4222",
			},
			&cli.StringFlag{
				Name:  "instance",
				Usage: "export instance prefix to invoke",
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

	numbers := counterStream(10, time.Second)
	words := wordStream(10, time.Second)

	resultTypes := []transport.Type{
		transport.StreamT(ptr(transport.U8())),
		transport.StreamT(ptr(transport.StringT())),
	}

	params := []transport.Value{
		transport.StreamValue(numbers),
		transport.StreamValue(words),
	}

	result, err := transport.Invoke(ctx, client, instance, name, params, resultTypes)
	if err != nil {
		return fmt.Errorf("invoke %s: %w", name, err)
	}

	if len(result) != 2 {
		return fmt.Errorf("malformed echo result")
	}
	drainStream(ctx, "numbers", result[0].Stream)
	drainStream(ctx, "words", result[1].Stream)
	return nil
}

func counterStream(n int, interval time.Duration) transport.StreamProducer {
	i := 0
	return func(ctx context.Context) (*transport.Value, bool, error) {
		if i >= n {
			return nil, false, nil
		}
		i++
		v := transport.U8Value(uint8(i))
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(interval):
		}
		return &v, true, nil
	}
}

func wordStream(n int, interval time.Duration) transport.StreamProducer {
	i := 0
	return func(ctx context.Context) (*transport.Value, bool, error) {
		if i >= n {
			return nil, false, nil
		}
		i++
		v := transport.StringValue(fmt.Sprintf("%d", i))
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(interval):
		}
		return &v, true, nil
	}
}

func drainStream(ctx context.Context, label string, produce transport.StreamProducer) {
	if produce == nil {
		return
	}
	for {
		v, ok, err := produce(ctx)
		if err != nil {
			wrpclog.Warnf("%s: %v", label, err)
			return
		}
		if !ok {
			return
		}
		fmt.Printf("%s: %+v\n", label, v)
	}
}

func ptr[T any](v T) *T { return &v }
