package newrelic

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// ContextWithTxn starts a transaction named name and stores it in the returned
// context. A nil app yields an inert transaction, so callers can always End
// it and notice errors on it.
func ContextWithTxn(parent context.Context, name string, app *newrelic.Application) (context.Context, *newrelic.Transaction) {
	var txn *newrelic.Transaction
	if app == nil {
		txn = &newrelic.Transaction{}
	} else {
		txn = app.StartTransaction(name)
	}

	return newrelic.NewContext(parent, txn), txn
}

// StartSegment times name within the transaction carried by ctx. The caller
// must End the returned segment.
func StartSegment(ctx context.Context, name string) *newrelic.Segment {
	txn := newrelic.FromContext(ctx)

	return &newrelic.Segment{
		StartTime: txn.StartSegmentNow(),
		Name:      name,
	}
}
