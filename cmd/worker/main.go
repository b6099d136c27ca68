package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"kritic-backend/internal/bootstrap"
	"kritic-backend/internal/shared/config"
	"kritic-backend/internal/shared/metrics"
	"kritic-backend/internal/shared/telemetry"
	"kritic-backend/internal/workerproc"
)

const (
	sqsRegion                = "us-east-1"
	defaultVisibilitySecs    = 1200
	defaultConcurrency       = 4
	defaultShutdownGraceSecs = 30
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// consumer drains one SQS queue, running each analysis job through the
// workerproc pipeline with bounded concurrency.
type consumer struct {
	client    sqsAPI
	queueURL  string
	processor workerproc.Processor

	visibilitySecs int
	sem            chan struct{}
	wg             sync.WaitGroup
}

func main() {
	cfg := config.Load()

	queueURL := strings.TrimSpace(os.Getenv("RC_SQS_QUEUE_URL"))
	if queueURL == "" {
		log.Fatal("RC_SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(sqsRegion))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	concurrency := envInt("RC_WORKER_CONCURRENCY", defaultConcurrency)
	if concurrency < 1 {
		concurrency = 1
	}
	c := &consumer{
		client:         sqs.NewFromConfig(awsCfg),
		queueURL:       queueURL,
		processor:      app.AnalysisProcessor,
		visibilitySecs: envInt("RC_SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySecs),
		sem:            make(chan struct{}, concurrency),
	}

	log.Printf("worker started queue=%s concurrency=%d visibility=%ds", queueURL, concurrency, c.visibilitySecs)
	c.run(ctx)

	grace := time.Duration(envInt("RC_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownGraceSecs)) * time.Second
	log.Printf("shutdown requested, waiting up to %s for in-flight jobs", grace)
	c.drain(grace)
}

func (c *consumer) run(ctx context.Context) {
	for ctx.Err() == nil {
		resp, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(c.visibilitySecs),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("receive message: %v", err)
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				return
			case c.sem <- struct{}{}:
			}
			metrics.IncAnalysisJobsReceived()
			c.wg.Add(1)
			go func(m sqstypes.Message) {
				defer c.wg.Done()
				defer func() { <-c.sem }()
				handleMessage(ctx, c.client, c.queueURL, c.processor, m)
			}(msg)
		}
	}
}

func (c *consumer) drain(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		log.Printf("shutdown timeout reached; exiting with in-flight jobs")
	}
}

// handleMessage runs one queue payload to completion. Poison messages (empty
// body, undecodable JSON, missing analysis id) are deleted so they stop
// redelivering; processing failures keep the message for SQS to retry.
func handleMessage(ctx context.Context, client sqsAPI, queueURL string, processor workerproc.Processor, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, parseErr := workerproc.ParseMessage(body)
	if parseErr != nil {
		fields := jobFields(msg, decoded.AnalysisID, decoded.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = parseErr.Error()
		telemetry.Error(parseEvent(parseErr), fields)
		if discard(ctx, client, queueURL, msg, decoded.AnalysisID, decoded.RequestID) {
			metrics.IncAnalysisJobsDeletedUnrecoverable()
		}
		return
	}

	telemetry.Info("worker.analysis.received", jobFields(msg, decoded.AnalysisID, decoded.RequestID))

	ctx = workerproc.WithParsedMessage(ctx, decoded)
	if err := workerproc.HandleMessage(ctx, processor, body); err != nil {
		fields := jobFields(msg, decoded.AnalysisID, decoded.RequestID)
		var procErr workerproc.ErrProcess
		if errors.As(err, &procErr) && procErr.Err != nil {
			fields["error"] = procErr.Err.Error()
		} else {
			fields["error"] = err.Error()
		}
		telemetry.Error("worker.analysis.failed", fields)
		metrics.IncAnalysisJobsFailed()
		return
	}

	if discard(ctx, client, queueURL, msg, decoded.AnalysisID, decoded.RequestID) {
		telemetry.Info("worker.analysis.completed", jobFields(msg, decoded.AnalysisID, decoded.RequestID))
		metrics.IncAnalysisJobsCompleted()
	}
}

func parseEvent(err error) string {
	switch err.(type) {
	case workerproc.ErrEmptyBody:
		return "worker.analysis.empty_body"
	case workerproc.ErrMissingAnalysisID:
		return "worker.analysis.missing_id"
	default:
		return "worker.analysis.decode_failed"
	}
}

func discard(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, analysisID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := jobFields(msg, analysisID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.analysis.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := jobFields(msg, analysisID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.analysis.delete_failed", fields)
		return false
	}
	return true
}

func jobFields(msg sqstypes.Message, analysisID, requestID string) telemetry.Fields {
	fields := telemetry.Fields{
		"analysis_id":    analysisID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	count, err := strconv.Atoi(msg.Attributes["ApproximateReceiveCount"])
	if err != nil {
		return 0
	}
	return count
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
