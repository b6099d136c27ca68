package workerproc

import (
	"context"
	"errors"
	"testing"

	"kritic-backend/internal/analyses"
	"kritic-backend/internal/queue"
)

type recordingProcessor struct {
	calls     []string
	requestID string
	err       error
}

func (p *recordingProcessor) ProcessAnalysis(ctx context.Context, analysisID string) error {
	p.calls = append(p.calls, analysisID)
	p.requestID = analyses.RequestIDFromContext(ctx)
	return p.err
}

func TestParseMessage(t *testing.T) {
	msg, meta, err := ParseMessage(`{"analysis_id":"an-1","request_id":"req-1","version":1}`)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.AnalysisID != "an-1" || msg.RequestID != "req-1" {
		t.Fatalf("message: %+v", msg)
	}
	if meta.BodyLen == 0 || meta.BodySHA == "" {
		t.Fatalf("meta not computed: %+v", meta)
	}
}

func TestParseMessageRejectsEmptyBody(t *testing.T) {
	_, _, err := ParseMessage("   ")
	var empty ErrEmptyBody
	if !errors.As(err, &empty) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestParseMessageRejectsBadJSON(t *testing.T) {
	_, meta, err := ParseMessage(`{"analysis_id":`)
	var decode ErrDecode
	if !errors.As(err, &decode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodySHA == "" {
		t.Fatalf("meta should still be computed for diagnostics")
	}
}

func TestParseMessageRejectsMissingAnalysisID(t *testing.T) {
	_, _, err := ParseMessage(`{"request_id":"req-1","version":1}`)
	var missing ErrMissingAnalysisID
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrMissingAnalysisID, got %v", err)
	}
	if missing.RequestID != "req-1" {
		t.Fatalf("request id not carried: %+v", missing)
	}
}

func TestHandleMessagePropagatesRequestID(t *testing.T) {
	p := &recordingProcessor{}

	err := HandleMessage(context.Background(), p, `{"analysis_id":"an-1","request_id":"req-9"}`)
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(p.calls) != 1 || p.calls[0] != "an-1" {
		t.Fatalf("calls: %v", p.calls)
	}
	if p.requestID != "req-9" {
		t.Fatalf("request id: %q", p.requestID)
	}
}

func TestHandleMessageUsesPreParsedMessage(t *testing.T) {
	p := &recordingProcessor{}
	ctx := WithParsedMessage(context.Background(), queue.Message{AnalysisID: "an-2", RequestID: "req-2"})

	// Body is garbage; the pre-parsed message wins.
	if err := HandleMessage(ctx, p, "not json"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(p.calls) != 1 || p.calls[0] != "an-2" {
		t.Fatalf("calls: %v", p.calls)
	}
}

func TestHandleMessageWrapsProcessingFailure(t *testing.T) {
	p := &recordingProcessor{err: errors.New("db down")}

	err := HandleMessage(context.Background(), p, `{"analysis_id":"an-3","request_id":"req-3"}`)
	var procErr ErrProcess
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if procErr.AnalysisID != "an-3" || procErr.RequestID != "req-3" {
		t.Fatalf("error context: %+v", procErr)
	}
}

func TestHandleMessageRequiresProcessor(t *testing.T) {
	if err := HandleMessage(context.Background(), nil, `{"analysis_id":"an-1"}`); err == nil {
		t.Fatalf("expected error without a processor")
	}
}
