package core

import (
	"errors"
	"testing"

	"pkt.systems/periscope/schema"
)

func TestConfirmationAnsweredExactlyOnce(t *testing.T) {
	confirms := NewConfirmations()
	if !confirms.Request(schema.ConfirmationRequest{CallID: "c1", ToolName: "rm"}) {
		t.Fatalf("first request must be accepted")
	}

	req, err := confirms.Answer("c1")
	if err != nil || req.ToolName != "rm" {
		t.Fatalf("first answer must consume the request, got err=%v req=%+v", err, req)
	}
	if _, err := confirms.Answer("c1"); !errors.Is(err, schema.ErrConfirmationAnswered) {
		t.Fatalf("second answer must report ErrConfirmationAnswered, got %v", err)
	}
}

func TestConfirmationUnknownCallRejected(t *testing.T) {
	confirms := NewConfirmations()
	if _, err := confirms.Answer("nope"); !errors.Is(err, schema.ErrUnknownCall) {
		t.Fatalf("answer for unknown call id must report ErrUnknownCall, got %v", err)
	}
}

func TestConfirmationWithdrawnCannotBeAnswered(t *testing.T) {
	confirms := NewConfirmations()
	confirms.Request(schema.ConfirmationRequest{CallID: "c1"})

	if !confirms.Withdraw("c1") {
		t.Fatalf("withdraw of a pending request must succeed")
	}
	if confirms.Withdraw("c1") {
		t.Fatalf("second withdraw must be rejected")
	}
	if _, err := confirms.Answer("c1"); !errors.Is(err, schema.ErrConfirmationAnswered) {
		t.Fatalf("withdrawn request must not be answerable, got %v", err)
	}
}

func TestConfirmationSettledCallNotReRequestable(t *testing.T) {
	confirms := NewConfirmations()
	confirms.Request(schema.ConfirmationRequest{CallID: "c1"})
	if _, err := confirms.Answer("c1"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if confirms.Request(schema.ConfirmationRequest{CallID: "c1"}) {
		t.Fatalf("settled call id must not be re-requestable")
	}
}

func TestConfirmationPendingOrder(t *testing.T) {
	confirms := NewConfirmations()
	confirms.Request(schema.ConfirmationRequest{CallID: "c1"})
	confirms.Request(schema.ConfirmationRequest{CallID: "c2"})
	confirms.Request(schema.ConfirmationRequest{CallID: "c3"})
	if _, err := confirms.Answer("c2"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	pending := confirms.Pending()
	if len(pending) != 2 || pending[0].CallID != "c1" || pending[1].CallID != "c3" {
		t.Fatalf("unexpected pending order: %+v", pending)
	}
}
