package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"contest-service/internal/app"
	amqp "github.com/rabbitmq/amqp091-go"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	declareErr error
	sent       []published
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	f.declared = append(f.declared, name+":"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisherRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	pub, err := newPublisher(ch, "contest.events")
	if err != nil {
		t.Fatalf("newPublisher: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "contest.events:topic" {
		t.Fatalf("unexpected declarations: %v", ch.declared)
	}

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	event := app.Event{Type: app.EventResultRecorded, At: at, Payload: map[string]int{"score": 12}}
	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(ch.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(ch.sent))
	}
	got := ch.sent[0]
	if got.exchange != "contest.events" || got.key != app.EventResultRecorded {
		t.Fatalf("unexpected routing %s/%s", got.exchange, got.key)
	}
	if got.msg.DeliveryMode != amqp.Persistent || !got.msg.Timestamp.Equal(at) {
		t.Fatalf("unexpected publishing %+v", got.msg)
	}
	var decoded struct {
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
	}
	if err := json.Unmarshal(got.msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.Type != app.EventResultRecorded || decoded.Payload["score"] != 12 {
		t.Fatalf("unexpected body %s", got.msg.Body)
	}
}

func TestPublisherClosesChannelWhenDeclareFails(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	if _, err := newPublisher(ch, "contest.events"); err == nil {
		t.Fatalf("expected declare error")
	}
	if !ch.closed {
		t.Fatalf("expected channel to be closed")
	}
}
