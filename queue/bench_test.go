package queue

import (
	"context"
	"database/sql"
	"testing"

	kt "inviqa/mail-relay/kafka/test"
	mt "inviqa/mail-relay/mail/test"
	"inviqa/mail-relay/request"
	rt "inviqa/mail-relay/request/test"
)

const benchRequests = 1000

func BenchmarkHandleDelivery(b *testing.B) {
	repo := rt.NewMockRepository()
	// resolved rows are skipped, so every iteration needs its own pending row
	for i := uint(1); i <= uint(b.N); i++ {
		repo.AddRequest(&request.Request{Id: i, MailTo: "a@example.com", MailText: sql.NullString{String: "x", Valid: true}})
	}
	c := newCoordinator(repo, kt.NewMockBroker(true), mt.NewMockTransport())
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		c.HandleDelivery(context.Background(), kt.NewMockDelivery(idText(uint(i)+1)))
	}
}

func BenchmarkHandleStaleDelivery(b *testing.B) {
	repo := rt.NewMockRepository()
	for i := uint(1); i <= benchRequests; i++ {
		repo.AddFulfilled(i, fixedNow)
	}
	c := newCoordinator(repo, kt.NewMockBroker(true), mt.NewMockTransport())
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		c.HandleDelivery(context.Background(), kt.NewMockDelivery(idText(uint(i%benchRequests)+1)))
	}
}

func BenchmarkOverflowPushAndDrain(b *testing.B) {
	broker := kt.NewMockBroker(true)
	c := newCoordinator(rt.NewMockRepository(), broker, mt.NewMockTransport())

	for i := 0; i < b.N; i++ {
		for id := uint(1); id <= benchRequests; id++ {
			c.overflow.push(id)
		}
		c.DrainOverflow()
	}
}
