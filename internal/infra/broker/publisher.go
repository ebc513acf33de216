package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"quiz-room-service/internal/domain"
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends final standings to a durable queue on the default exchange.
type Publisher struct {
	conn  *amqp.Connection
	queue string

	mu       sync.Mutex
	channel  Channel
	declared bool
}

// Dial connects to the broker at url.
func Dial(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return &Publisher{conn: conn, queue: queue, channel: channel}, nil
}

// NewPublisher wraps an existing channel.
func NewPublisher(channel Channel, queue string) *Publisher {
	return &Publisher{queue: queue, channel: channel}
}

// Message is the JSON body published for a completed room.
type Message struct {
	RoomCode       string                    `json:"roomCode"`
	CompletedAt    time.Time                 `json:"completedAt"`
	TotalQuestions int                       `json:"totalQuestions"`
	Leaderboard    []domain.LeaderboardEntry `json:"leaderboard"`
}

func (p *Publisher) PublishStandings(ctx context.Context, standings domain.Standings) error {
	body, err := json.Marshal(Message{
		RoomCode:       standings.RoomCode,
		CompletedAt:    standings.CompletedAt,
		TotalQuestions: standings.TotalQuestions,
		Leaderboard:    standings.Leaderboard,
	})
	if err != nil {
		return fmt.Errorf("marshal standings: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared {
		if _, err := p.channel.QueueDeclare(
			p.queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			return fmt.Errorf("failed to declare queue: %w", err)
		}
		p.declared = true
	}

	return p.channel.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    standings.CompletedAt,
			Body:         body,
		},
	)
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
