package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"kritic-backend/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err error
}

func (f fakeProcessor) ProcessAnalysis(ctx context.Context, analysisID string) error {
	return f.err
}

func sqsMessage(receipt, body string) sqstypes.Message {
	return sqstypes.Message{
		MessageId:     aws.String("m-" + receipt),
		ReceiptHandle: aws.String(receipt),
		Body:          aws.String(body),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func encodedJob(t *testing.T, analysisID string) string {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{AnalysisID: analysisID, RequestID: "req-" + analysisID})
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	return string(body)
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}

	handleMessage(context.Background(), client, "queue", fakeProcessor{}, sqsMessage("r1", encodedJob(t, "an-1")))

	if len(client.deleted) != 1 || client.deleted[0] != "r1" {
		t.Fatalf("deleted: %v", client.deleted)
	}
}

func TestWorkerKeepsMessageOnProcessingFailure(t *testing.T) {
	client := &fakeSQS{}
	proc := fakeProcessor{err: errors.New("db down")}

	handleMessage(context.Background(), client, "queue", proc, sqsMessage("r2", encodedJob(t, "an-2")))

	if len(client.deleted) != 0 {
		t.Fatalf("failure must leave the message for redelivery: %v", client.deleted)
	}
}

func TestWorkerDiscardsPoisonMessages(t *testing.T) {
	poison := map[string]string{
		"invalid json":        "{bad-json",
		"empty body":          "   ",
		"missing analysis id": `{"request_id":"req-1"}`,
	}
	for name, body := range poison {
		client := &fakeSQS{}
		handleMessage(context.Background(), client, "queue", fakeProcessor{}, sqsMessage("r3", body))
		if len(client.deleted) != 1 {
			t.Fatalf("%s: expected delete, got %v", name, client.deleted)
		}
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqsMessage("r", "")); got != 1 {
		t.Fatalf("receive count: %d", got)
	}
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("missing attributes: %d", got)
	}
}
