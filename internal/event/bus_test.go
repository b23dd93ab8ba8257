package event

import (
	"testing"
	"time"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()

	first := make(chan any, 1)
	second := make(chan any, 1)
	bus.Subscribe(EventCodeIssued, func(payload any) { first <- payload })
	bus.Subscribe(EventCodeIssued, func(payload any) { second <- payload })

	sent := CodeIssuedPayload{ConsultationID: "abc", Code: "QH-ABCDEF"}
	bus.Publish(EventCodeIssued, sent)

	for name, ch := range map[string]chan any{"first": first, "second": second} {
		select {
		case got := <-ch:
			payload, ok := got.(CodeIssuedPayload)
			if !ok || payload.Code != sent.Code {
				t.Fatalf("%s subscriber: unexpected payload %+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s subscriber never received the event", name)
		}
	}
}

func TestBus_PublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewBus()
	bus.Publish(EventCheckoutCreated, CheckoutCreatedPayload{ConsultationID: "abc"})
}

func TestBus_SubscribersAreEventScoped(t *testing.T) {
	bus := NewBus()

	received := make(chan any, 1)
	bus.Subscribe(EventCheckoutCreated, func(payload any) { received <- payload })

	bus.Publish(EventCodeIssued, CodeIssuedPayload{Code: "QH-ABCDEF"})

	select {
	case got := <-received:
		t.Fatalf("subscriber received an event it never asked for: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}
