//go:build integration
// +build integration

package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"inviqa/mail-relay/integration/http"
	"inviqa/mail-relay/job"
	"inviqa/mail-relay/request"

	. "github.com/smartystreets/goconvey/convey"
)

func newFulfilledRequest(at time.Time) *request.Request {
	return &request.Request{
		KeyId:       keyId,
		ReqId:       "cleanup",
		MailFrom:    "relay@example.com",
		MailTo:      "someone@example.com",
		MailSubject: "Hi",
		MailText:    sql.NullString{String: "hello", Valid: true},
		Fulfilled:   sql.NullTime{Time: at, Valid: true},
	}
}

func TestCleanupJobRemovesExpiredRequests(t *testing.T) {
	Convey("Given there are requests fulfilled more than a month ago", t, func() {
		old := newFulfilledRequest(time.Now().AddDate(0, -2, 0))
		oldFailed := newFulfilledRequest(time.Now().AddDate(0, -3, 0))
		oldFailed.LastError = sql.NullString{String: "550 no such user", Valid: true}
		recent := newFulfilledRequest(time.Now().AddDate(0, 0, -1))
		pending := &request.Request{KeyId: keyId, ReqId: "cleanup", MailFrom: "relay@example.com", MailTo: "x@example.com", MailSubject: "Hi", MailText: sql.NullString{String: "x", Valid: true}}
		for _, r := range []*request.Request{old, oldFailed, recent, pending} {
			insertRequest(r)
		}

		Convey("When we execute a cleanup", func() {
			code := job.RunCleanup(context.Background(), repo, cfg)

			Convey("Then the expired requests should have been deleted", func() {
				So(code, ShouldEqual, 0)
				So(requestExists(old.Id), ShouldBeFalse)
				So(requestExists(oldFailed.Id), ShouldBeFalse)

				Convey("And the recent and pending requests should not have been deleted", func() {
					So(requestExists(recent.Id), ShouldBeTrue)
					So(requestExists(pending.Id), ShouldBeTrue)
				})
			})
		})
	})
}

func TestCleanupJobQuitsSidecarProxyWhenConfiguredToDoSo(t *testing.T) {
	http.Reset()

	Convey("Given there is an expired request", t, func() {
		old := newFulfilledRequest(time.Now().AddDate(-1, 0, 0))
		insertRequest(old)

		Convey("When we execute a cleanup", func() {
			code := job.RunCleanup(context.Background(), repo, cfg)

			Convey("Then the request should have been deleted", func() {
				So(code, ShouldEqual, 0)
				So(requestExists(old.Id), ShouldBeFalse)

				Convey("And a request to quit the sidecar proxy should have been sent via HTTP", func() {
					So(http.Received("/quitquitquit"), ShouldBeTrue)
				})
			})
		})
	})
}
