package transport

import (
	"context"

	"github.com/wrpc-go/wrpc/wrpcerr"
	"github.com/wrpc-go/wrpc/wrpclog"
)

// Invoker is the substrate's outbound half: it derives a fresh root
// subject for a call, subscribes for the callee's result before sending
// anything (avoiding the send/subscribe race), and exposes both as a
// single handle.
type Invoker interface {
	Subscriber
	Transmitter
	// NewCall allocates a fresh root subject for one RPC invocation of the
	// named export.
	NewCall(ctx context.Context, instance, name string) (Subject, error)
}

// Invoke calls the export named instance/name with params (encoded as the
// tuple (T1, T2, …, Tn) spec.md §6 specifies), racing the result decode
// against the param transmission and ctx cancellation, and returns
// whichever fires first: the decoded result tuple, a transmission
// failure, or ctx's own error (spec.md §4.7 "first-wins" law).
func Invoke(ctx context.Context, inv Invoker, instance, name string, params []Value, resultTypes []Type) ([]Value, error) {
	subject, err := inv.NewCall(ctx, instance, name)
	if err != nil {
		return nil, wrpcerr.NewTransportError("allocate call subject", err)
	}

	resultTy := TupleT(resultTypes...)
	resultSub, err := SubscribeAsync(ctx, inv, subject.Child(idx(0)), resultTy)
	if err != nil {
		return nil, wrpcerr.NewTransportError("subscribe for result", err)
	}
	resultStream, err := inv.Subscribe(ctx, subject.Child(idx(0)))
	if err != nil {
		return nil, wrpcerr.NewTransportError("subscribe for result", err)
	}

	transmitDone := make(chan error, 1)
	go func() {
		g, err := TransmitTuple(ctx, inv, subject.Child(idx(1)), params)
		if err != nil {
			transmitDone <- err
			return
		}
		transmitDone <- g.Wait()
	}()

	type decoded struct {
		v   []Value
		err error
	}
	resultDone := make(chan decoded, 1)
	go func() {
		buf := NewBuffer(nil)
		v, err := DecodeTuple(ctx, resultTypes, buf, resultStream, resultSub, nil)
		resultDone <- decoded{v, err}
	}()

	select {
	case <-ctx.Done():
		return nil, wrpcerr.NewCancellationError(ctx.Err())
	case err := <-transmitDone:
		if err != nil {
			return nil, err
		}
		r := <-resultDone
		return r.v, r.err
	case r := <-resultDone:
		return r.v, r.err
	}
}

// Handler serves one export: given the decoded parameter tuple, it
// computes and returns the result tuple (or an application-level error).
type Handler func(ctx context.Context, params []Value) ([]Value, error)

// Acceptor is the substrate's inbound half: it listens for calls to an
// export and yields the root subject of each one as it arrives.
type Acceptor interface {
	Subscriber
	Transmitter
	// Accept blocks until a new invocation of instance/name arrives,
	// returning its root subject.
	Accept(ctx context.Context, instance, name string) (Subject, error)
}

// Serve runs one export's request/response loop until ctx is canceled:
// for each incoming call it decodes the params tuple per paramsTypes,
// invokes handler, and transmits the result tuple per resultTypes
// (spec.md §6 "params/results encode as a tuple").
func Serve(ctx context.Context, acc Acceptor, instance, name string, paramsTypes, resultTypes []Type, handler Handler) error {
	for {
		subject, err := acc.Accept(ctx, instance, name)
		if err != nil {
			if ctx.Err() != nil {
				return wrpcerr.NewCancellationError(ctx.Err())
			}
			return wrpcerr.NewTransportError("accept call", err)
		}
		go serveOne(ctx, acc, subject, paramsTypes, resultTypes, handler)
	}
}

func serveOne(ctx context.Context, acc Acceptor, subject Subject, paramsTypes, resultTypes []Type, handler Handler) {
	paramsTy := TupleT(paramsTypes...)
	paramsSub, err := SubscribeAsync(ctx, acc, subject.Child(idx(1)), paramsTy)
	if err != nil {
		return
	}
	paramsStream, err := acc.Subscribe(ctx, subject.Child(idx(1)))
	if err != nil {
		return
	}
	buf := NewBuffer(nil)
	params, err := DecodeTuple(ctx, paramsTypes, buf, paramsStream, paramsSub, nil)
	if err != nil {
		return
	}

	result, herr := handler(ctx, params)
	if herr != nil {
		// With no dedicated error subject wired up yet (spec.md §5's
		// error_subject is an open gap, see DESIGN.md), the only way to
		// surface a handler error on the wire is a result<_, string>
		// shaped single result arm; anything else has nowhere to put it.
		if len(resultTypes) == 1 && resultTypes[0].resolved().Kind == KindResult {
			result = []Value{ErrValue(&Value{Kind: KindString, Str: herr.Error()})}
		} else {
			wrpclog.Warnf("serve: handler error with no result-typed error arm to report it on: %v", herr)
			return
		}
	}
	_, _ = TransmitTuple(ctx, acc, subject.Child(idx(0)), result)
}
