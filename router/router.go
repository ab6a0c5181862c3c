package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/blockgrid/internal/ctxlog"
	"github.com/specialistvlad/blockgrid/internal/naming"
	"github.com/specialistvlad/blockgrid/router/routing"
)

// SendOptions tune a single send. The zero value sends to the default
// output with the input's synchronicity.
type SendOptions struct {
	// To is an output name or connector id.
	To         string
	StatusCode int
	// Synchronous overrides the synchronicity inherited from the input.
	Synchronous *bool
	// ConnectionID overrides the websocket connection responses go to.
	ConnectionID string
}

// Send routes a payload to one of the block's outputs.
type Send func(payload any, opts SendOptions)

// Func is a block body.
type Func func(ctx context.Context, in Input, send Send) error

// Invoker calls another function and, when sync is set, returns its result.
type Invoker interface {
	Invoke(ctx context.Context, function string, payload []byte, sync bool) ([]byte, error)
}

// QueueSender sends one batch of messages to a queue.
type QueueSender interface {
	SendBatch(ctx context.Context, queueURL string, entries []BatchEntry) error
}

// ConnectionPoster posts data back to a websocket connection.
type ConnectionPoster interface {
	PostToConnection(ctx context.Context, endpoint, connectionID string, data []byte) error
}

// Router runs one block body against its routing table.
type Router struct {
	table     *routing.Table
	fn        Func
	invoker   Invoker
	queue     QueueSender
	poster    ConnectionPoster
	lookupEnv func(string) (string, bool)
}

// Option configures a Router.
type Option func(*Router)

// WithEnv replaces the environment lookup used to resolve destinations.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(r *Router) { r.lookupEnv = lookup }
}

// New creates a Router.
func New(table *routing.Table, fn Func, invoker Invoker, queue QueueSender, poster ConnectionPoster, opts ...Option) *Router {
	r := &Router{
		table:     table,
		fn:        fn,
		invoker:   invoker,
		queue:     queue,
		poster:    poster,
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle processes one raw event. Failures become error responses, so the
// returned error is always nil; the signature matches the Lambda handler
// contract.
func (r *Router) Handle(ctx context.Context, event json.RawMessage) (Response, error) {
	ctx, logger := ctxlog.With(ctx, "invocation_id", uuid.NewString())

	resp, err := r.handle(ctx, event)
	if err != nil {
		var fe *FunctionError
		if errors.As(err, &fe) {
			logger.Warn("Function returned an error.", "status", fe.StatusCode, "error", err)
			return fe.response(), nil
		}
		logger.Error("Invocation failed.", "error", err)
		return errorResponse(err), nil
	}
	logger.Debug("Invocation finished.", "status", resp.StatusCode)
	return resp, nil
}

// turn is the state of one invocation.
type turn struct {
	*Router
	ctx     context.Context
	logger  *slog.Logger
	group   *errgroup.Group
	results *results

	mu     sync.Mutex
	queued map[string][]Envelope
	order  []string
}

func (r *Router) handle(ctx context.Context, event json.RawMessage) (Response, error) {
	inputs, err := Inputs(r.table, event)
	if err != nil {
		return Response{}, err
	}
	for i := range inputs {
		inputs[i].Properties = r.table.Properties
	}

	group, gctx := errgroup.WithContext(ctx)
	t := &turn{
		Router:  r,
		ctx:     gctx,
		logger:  ctxlog.FromContext(ctx),
		group:   group,
		results: &results{},
		queued:  map[string][]Envelope{},
	}

	for _, in := range inputs {
		t.logger.Debug("Running block.", "from", in.From)
		if err := r.fn(ctx, in, t.sender(in)); err != nil {
			// let in-flight sends settle before reporting
			_ = group.Wait()
			return Response{}, err
		}
	}

	t.flushQueues()
	if err := group.Wait(); err != nil {
		return Response{}, err
	}
	return t.results.response(), nil
}

func (t *turn) sender(in Input) Send {
	return func(payload any, opts SendOptions) {
		t.route(in, payload, opts)
	}
}

func (t *turn) route(in Input, payload any, opts SendOptions) {
	outputID, ok := t.table.ResolveOutput(opts.To)
	if !ok {
		t.logger.Warn("Dropping send to unknown output.", "to", opts.To)
		return
	}

	wsRoute := in.Ctx.WebSocket.isRoute()
	env := Envelope{
		Payload:     payload,
		To:          outputID,
		StatusCode:  opts.StatusCode,
		Synchronous: in.Ctx.Synchronous || t.table.InputSynchronous[in.From] || wsRoute,
	}
	if opts.Synchronous != nil {
		env.Synchronous = *opts.Synchronous
	}
	if wsRoute {
		ws := *in.Ctx.WebSocket
		if opts.ConnectionID != "" {
			ws.ConnectionID = opts.ConnectionID
		}
		env.FromWebSocket = &ws
	}

	if t.table.OutputResponse[outputID] {
		t.respond(env)
		return
	}

	dest, ok := t.destination(outputID)
	if !ok {
		t.logger.Warn("Dropping send without destination.", "output", outputID)
		return
	}
	switch t.table.OutputKinds[outputID] {
	case routing.KindFunction:
		t.invoke(dest, env)
	case routing.KindQueue:
		t.mu.Lock()
		if _, seen := t.queued[dest]; !seen {
			t.order = append(t.order, dest)
		}
		t.queued[dest] = append(t.queued[dest], env)
		t.mu.Unlock()
	default:
		t.logger.Warn("Dropping send to output of unknown kind.", "output", outputID, "kind", t.table.OutputKinds[outputID])
	}
}

func (t *turn) destination(outputID string) (string, bool) {
	name, ok := t.table.Destinations[outputID]
	if !ok {
		name = naming.EnvVar(outputID)
	}
	v, ok := t.lookupEnv(name)
	return v, ok && v != ""
}

func (t *turn) respond(env Envelope) {
	ws := env.FromWebSocket
	if ws == nil {
		t.results.add(env.Payload, env.StatusCode)
		return
	}
	data := []byte(encodeBody(env.Payload))
	t.group.Go(func() error {
		if err := t.poster.PostToConnection(t.ctx, ws.Endpoint(), ws.ConnectionID, data); err != nil {
			return fmt.Errorf("failed to post to connection %s: %w", ws.ConnectionID, err)
		}
		return nil
	})
}

func (t *turn) invoke(function string, env Envelope) {
	t.group.Go(func() error {
		payload, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("failed to encode envelope: %w", err)
		}
		out, err := t.invoker.Invoke(t.ctx, function, payload, env.Synchronous)
		if err != nil {
			return fmt.Errorf("failed to invoke %s: %w", function, err)
		}
		if !env.Synchronous || len(out) == 0 {
			return nil
		}
		var resp Response
		if err := json.Unmarshal(out, &resp); err != nil {
			return fmt.Errorf("invalid response from %s: %w", function, err)
		}
		if resp.Body != "" {
			t.results.add(decodeBody(resp.Body), resp.StatusCode)
		}
		return nil
	})
}

// decodeBody turns a JSON body back into a value so merged results nest;
// anything else stays a string.
func decodeBody(body string) any {
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return body
	}
	return v
}

// flushQueues sends the buffered envelopes, one goroutine per destination.
func (t *turn) flushQueues() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, dest := range t.order {
		dest := dest
		envs := t.queued[dest]
		t.group.Go(func() error {
			messages := make([]string, 0, len(envs))
			for _, env := range envs {
				b, err := json.Marshal(env)
				if err != nil {
					return fmt.Errorf("failed to encode envelope: %w", err)
				}
				messages = append(messages, string(b))
			}
			for _, batch := range Batches(messages) {
				if err := t.queue.SendBatch(t.ctx, dest, batch); err != nil {
					return fmt.Errorf("failed to send to queue %s: %w", dest, err)
				}
			}
			return nil
		})
	}
}
