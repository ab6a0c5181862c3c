package awsrouter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/blockgrid/router"
)

type fakeLambda struct {
	in  *awslambda.InvokeInput
	out *awslambda.InvokeOutput
}

func (f *fakeLambda) Invoke(_ context.Context, in *awslambda.InvokeInput, _ ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error) {
	f.in = in
	return f.out, nil
}

func TestInvoker(t *testing.T) {
	testCases := []struct {
		name     string
		sync     bool
		wantType lambdatypes.InvocationType
	}{
		{"sync", true, lambdatypes.InvocationTypeRequestResponse},
		{"async", false, lambdatypes.InvocationTypeEvent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeLambda{out: &awslambda.InvokeOutput{Payload: []byte(`{"statusCode":200}`)}}
			inv := &Invoker{Client: fake}

			out, err := inv.Invoke(context.Background(), "fn-a", []byte(`{"to":"x"}`), tc.sync)
			require.NoError(t, err)
			assert.Equal(t, `{"statusCode":200}`, string(out))
			assert.Equal(t, "fn-a", aws.ToString(fake.in.FunctionName))
			assert.Equal(t, tc.wantType, fake.in.InvocationType)
			assert.Equal(t, `{"to":"x"}`, string(fake.in.Payload))
		})
	}
}

func TestInvoker_FunctionError(t *testing.T) {
	fake := &fakeLambda{out: &awslambda.InvokeOutput{
		FunctionError: aws.String("Unhandled"),
		Payload:       []byte(`{"errorMessage":"boom"}`),
	}}

	_, err := (&Invoker{Client: fake}).Invoke(context.Background(), "fn-a", nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unhandled")
	assert.Contains(t, err.Error(), "boom")
}

type fakeSQS struct {
	in  *sqs.SendMessageBatchInput
	out *sqs.SendMessageBatchOutput
}

func (f *fakeSQS) SendMessageBatch(_ context.Context, in *sqs.SendMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error) {
	f.in = in
	return f.out, nil
}

func TestQueueSender(t *testing.T) {
	entries := []router.BatchEntry{{ID: "0", Body: "a"}, {ID: "1", Body: "b"}}

	t.Run("all accepted", func(t *testing.T) {
		fake := &fakeSQS{out: &sqs.SendMessageBatchOutput{}}
		require.NoError(t, (&QueueSender{Client: fake}).SendBatch(context.Background(), "https://q", entries))

		assert.Equal(t, "https://q", aws.ToString(fake.in.QueueUrl))
		require.Len(t, fake.in.Entries, 2)
		assert.Equal(t, "1", aws.ToString(fake.in.Entries[1].Id))
		assert.Equal(t, "b", aws.ToString(fake.in.Entries[1].MessageBody))
		assert.Nil(t, fake.in.Entries[0].MessageGroupId)
		assert.Nil(t, fake.in.Entries[0].MessageDeduplicationId)
	})

	t.Run("fifo queue", func(t *testing.T) {
		fake := &fakeSQS{out: &sqs.SendMessageBatchOutput{}}
		url := "https://sqs.eu-west-1.amazonaws.com/123/abcd-shop-queuef1queue.fifo"
		require.NoError(t, (&QueueSender{Client: fake}).SendBatch(context.Background(), url, entries))

		require.Len(t, fake.in.Entries, 2)
		for _, e := range fake.in.Entries {
			assert.Equal(t, "abcd-shop-queuef1queue", aws.ToString(e.MessageGroupId))
			assert.NotEmpty(t, aws.ToString(e.MessageDeduplicationId))
		}
		assert.NotEqual(t,
			aws.ToString(fake.in.Entries[0].MessageDeduplicationId),
			aws.ToString(fake.in.Entries[1].MessageDeduplicationId))
	})

	t.Run("partial failure", func(t *testing.T) {
		fake := &fakeSQS{out: &sqs.SendMessageBatchOutput{
			Failed: []sqstypes.BatchResultErrorEntry{{Id: aws.String("1"), Message: aws.String("too big")}},
		}}
		err := (&QueueSender{Client: fake}).SendBatch(context.Background(), "https://q", entries)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 2 messages rejected")
	})
}

func TestNewRouter_MissingTable(t *testing.T) {
	t.Setenv(RoutingTableEnv, filepath.Join(t.TempDir(), "missing.json"))

	_, err := NewRouter(context.Background(), func(context.Context, router.Input, router.Send) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConnectionPoster_ReusesClients(t *testing.T) {
	p := NewConnectionPoster(aws.Config{Region: "eu-west-1"})

	a := p.client("https://a.example.com/prod")
	b := p.client("https://a.example.com/prod")
	c := p.client("https://b.example.com/prod")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
