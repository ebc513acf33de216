package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"quiz-room-service/internal/domain"
)

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
	failWith  error
}

func (c *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if !durable {
		return amqp.Queue{}, errors.New("expected durable queue")
	}
	c.declared = append(c.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func TestPublishStandings(t *testing.T) {
	ch := &fakeChannel{}
	pub := NewPublisher(ch, "quiz.results")

	standings := domain.Standings{
		RoomCode:       "ABC555",
		TotalQuestions: 3,
		CompletedAt:    time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		Leaderboard: []domain.LeaderboardEntry{
			{Rank: 1, ConnectionID: "c1", DisplayName: "Alice", Score: 1000, Percent: 33},
		},
	}
	for i := 0; i < 2; i++ {
		if err := pub.PublishStandings(context.Background(), standings); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	if len(ch.declared) != 1 {
		t.Fatalf("expected queue declared once, got %v", ch.declared)
	}
	if len(ch.published) != 2 || ch.keys[0] != "quiz.results" {
		t.Fatalf("expected 2 messages routed to quiz.results, got %d %v", len(ch.published), ch.keys)
	}

	var msg Message
	if err := json.Unmarshal(ch.published[0].Body, &msg); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if msg.RoomCode != "ABC555" || len(msg.Leaderboard) != 1 || msg.Leaderboard[0].Score != 1000 {
		t.Fatalf("unexpected message %+v", msg)
	}
	if ch.published[0].DeliveryMode != amqp.Persistent {
		t.Fatalf("expected persistent delivery")
	}
}

func TestPublishStandingsError(t *testing.T) {
	ch := &fakeChannel{failWith: errors.New("channel closed")}
	pub := NewPublisher(ch, "quiz.results")
	if err := pub.PublishStandings(context.Background(), domain.Standings{RoomCode: "ABC555"}); err == nil {
		t.Fatalf("expected publish error")
	}
}
