// Package awsrouter binds the router to AWS: Lambda for function
// invocations, SQS for queue batches and the API Gateway management API for
// websocket posts.
package awsrouter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/specialistvlad/blockgrid/internal/ctxlog"
	"github.com/specialistvlad/blockgrid/router"
	"github.com/specialistvlad/blockgrid/router/routing"
)

// RoutingTableEnv names the variable holding the routing table path.
const RoutingTableEnv = "BLOCKGRID_ROUTING_TABLE"

// DefaultRoutingTable is where the build places the routing table.
const DefaultRoutingTable = "_lib/routing.json"

// LambdaAPI is the part of the Lambda client the Invoker uses.
type LambdaAPI interface {
	Invoke(ctx context.Context, in *awslambda.InvokeInput, optFns ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error)
}

// Invoker calls other functions through Lambda.
type Invoker struct {
	Client LambdaAPI
}

var _ router.Invoker = (*Invoker)(nil)

func (i *Invoker) Invoke(ctx context.Context, function string, payload []byte, sync bool) ([]byte, error) {
	invocationType := lambdatypes.InvocationTypeEvent
	if sync {
		invocationType = lambdatypes.InvocationTypeRequestResponse
	}
	out, err := i.Client.Invoke(ctx, &awslambda.InvokeInput{
		FunctionName:   aws.String(function),
		InvocationType: invocationType,
		Payload:        payload,
	})
	if err != nil {
		return nil, err
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("%s: %s", aws.ToString(out.FunctionError), out.Payload)
	}
	return out.Payload, nil
}

// SQSAPI is the part of the SQS client the QueueSender uses.
type SQSAPI interface {
	SendMessageBatch(ctx context.Context, in *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// QueueSender sends batches to SQS.
type QueueSender struct {
	Client SQSAPI
}

var _ router.QueueSender = (*QueueSender)(nil)

// SendBatch fails when any entry of the batch was rejected. FIFO queues
// receive every message in one group named after the queue, so delivery
// keeps send order, and a fresh deduplication id per message since the
// generated queues do not enable content-based deduplication.
func (q *QueueSender) SendBatch(ctx context.Context, queueURL string, entries []router.BatchEntry) error {
	in := &sqs.SendMessageBatchInput{QueueUrl: aws.String(queueURL)}
	fifo := strings.HasSuffix(queueURL, ".fifo")
	for _, e := range entries {
		entry := sqstypes.SendMessageBatchRequestEntry{
			Id:          aws.String(e.ID),
			MessageBody: aws.String(e.Body),
		}
		if fifo {
			entry.MessageGroupId = aws.String(strings.TrimSuffix(path.Base(queueURL), ".fifo"))
			entry.MessageDeduplicationId = aws.String(uuid.NewString())
		}
		in.Entries = append(in.Entries, entry)
	}
	out, err := q.Client.SendMessageBatch(ctx, in)
	if err != nil {
		return err
	}
	if len(out.Failed) > 0 {
		msgs := make([]string, 0, len(out.Failed))
		for _, f := range out.Failed {
			msgs = append(msgs, fmt.Sprintf("%s: %s", aws.ToString(f.Id), aws.ToString(f.Message)))
		}
		return fmt.Errorf("%d of %d messages rejected: %s", len(out.Failed), len(entries), strings.Join(msgs, "; "))
	}
	return nil
}

// ConnectionPoster posts to websocket connections. Management clients are
// created per endpoint and reused.
type ConnectionPoster struct {
	cfg     aws.Config
	mu      sync.Mutex
	clients map[string]*apigatewaymanagementapi.Client
}

var _ router.ConnectionPoster = (*ConnectionPoster)(nil)

// NewConnectionPoster creates a poster using cfg for every endpoint.
func NewConnectionPoster(cfg aws.Config) *ConnectionPoster {
	return &ConnectionPoster{cfg: cfg, clients: map[string]*apigatewaymanagementapi.Client{}}
}

func (p *ConnectionPoster) client(endpoint string) *apigatewaymanagementapi.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.clients[endpoint]
	if !ok {
		c = apigatewaymanagementapi.NewFromConfig(p.cfg, func(o *apigatewaymanagementapi.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
		p.clients[endpoint] = c
	}
	return c
}

func (p *ConnectionPoster) PostToConnection(ctx context.Context, endpoint, connectionID string, data []byte) error {
	_, err := p.client(endpoint).PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         data,
	})
	return err
}

// NewRouter loads the routing table and AWS configuration and wires a
// router for fn.
func NewRouter(ctx context.Context, fn router.Func) (*router.Router, error) {
	path := os.Getenv(RoutingTableEnv)
	if path == "" {
		path = DefaultRoutingTable
	}
	table, err := routing.Load(path)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return router.New(table, fn,
		&Invoker{Client: awslambda.NewFromConfig(cfg)},
		&QueueSender{Client: sqs.NewFromConfig(cfg)},
		NewConnectionPoster(cfg),
	), nil
}

// Start runs fn as the Lambda handler. It only returns on start-up failure.
func Start(fn router.Func) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	r, err := NewRouter(ctx, fn)
	if err != nil {
		logger.Error("Failed to start router.", "error", err)
		return errors.Join(errors.New("router start-up failed"), err)
	}
	lambda.StartWithOptions(r.Handle, lambda.WithContext(ctx))
	return nil
}
