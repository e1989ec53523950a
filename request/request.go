package request

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("request: no matching row")

// Request is a single recipient's delivery, one row of the requests table.
// A nil Fulfilled means the row is still pending; a fulfilled row with a
// LastError failed permanently.
type Request struct {
	Id          uint
	KeyId       uint
	ReqId       string
	MailFrom    string
	MailTo      string
	MailReplyTo sql.NullString
	MailSubject string
	MailText    sql.NullString
	MailHtml    sql.NullString
	Fulfilled   sql.NullTime
	LastError   sql.NullString
}

func (r *Request) Pending() bool {
	return !r.Fulfilled.Valid
}

func (r *Request) Delivered() bool {
	return r.Fulfilled.Valid && !r.LastError.Valid
}

func (r *Request) PermanentlyFailed() bool {
	return r.Fulfilled.Valid && r.LastError.Valid
}

// Status is the client visible view of a Request.
type Status struct {
	Id        uint
	Fulfilled sql.NullTime
	LastError sql.NullString
}

type AuthKey struct {
	Id    uint
	Code  string
	Ban   sql.NullString
	Label sql.NullString
}

func (k *AuthKey) Banned() bool {
	return k.Ban.Valid
}

// Outcome is the result of one delivery attempt as it should be persisted.
// A transient outcome leaves Fulfilled invalid so the row stays pending.
type Outcome struct {
	Id        uint
	Fulfilled sql.NullTime
	LastError sql.NullString
}

func DeliveredOutcome(id uint, at time.Time) Outcome {
	return Outcome{Id: id, Fulfilled: sql.NullTime{Time: at, Valid: true}}
}

func FailedOutcome(id uint, at time.Time, reason string) Outcome {
	return Outcome{
		Id:        id,
		Fulfilled: sql.NullTime{Time: at, Valid: true},
		LastError: sql.NullString{String: reason, Valid: true},
	}
}

func TransientOutcome(id uint, reason string) Outcome {
	return Outcome{Id: id, LastError: sql.NullString{String: reason, Valid: true}}
}
