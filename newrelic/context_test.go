package newrelic

import (
	"context"
	"testing"

	"github.com/newrelic/go-agent/v3/newrelic"
)

func TestContextWithTxn(t *testing.T) {
	app, _ := newrelic.NewApplication(newrelic.ConfigEnabled(false))
	got, txn := ContextWithTxn(context.Background(), "deliver-request", app)

	if txn == nil {
		t.Fatal("expected a *newrelic.Transaction, but got nil")
	}

	if ctxTxn := newrelic.FromContext(got); ctxTxn != txn {
		t.Errorf("expected txn from context (%#v) to equal returned txn (%#v)", ctxTxn, txn)
	}
}

func TestContextWithTxnWithoutApplication(t *testing.T) {
	got, txn := ContextWithTxn(context.Background(), "deliver-request", nil)

	if txn == nil {
		t.Fatal("expected an inert *newrelic.Transaction, but got nil")
	}

	if newrelic.FromContext(got) != txn {
		t.Error("expected the inert transaction to be stored in the context")
	}

	txn.NoticeError(context.Canceled)
	txn.End()
}

func TestStartSegment(t *testing.T) {
	ctx, txn := ContextWithTxn(context.Background(), "deliver-request", nil)
	defer txn.End()

	seg := StartSegment(ctx, "smtp-send")
	if seg == nil || seg.Name != "smtp-send" {
		t.Errorf("expected a segment named smtp-send, got %#v", seg)
	}
	seg.End()
}

func TestStartSegmentWithoutTransaction(t *testing.T) {
	seg := StartSegment(context.Background(), "smtp-send")
	seg.End()
}
