// Package queue publishes domain events to RabbitMQ for the notification
// pipeline. Publish errors are logged and returned so callers can ignore
// them: a bid's outcome never depends on the broker.
package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/revisaosegura/copartbr-sub000/utils"
)

// BidAcceptedQueue is the durable queue accepted bids are announced on.
const BidAcceptedQueue = "bid.accepted"

// BidAcceptedEvent is the message body published after a bid is accepted
// and durably recorded.
type BidAcceptedEvent struct {
	LotID     string    `json:"lot_id"`
	BidID     string    `json:"bid_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	TotalBids int       `json:"total_bids"`
	PlacedAt  time.Time `json:"placed_at"`
}

// Publisher announces accepted bids to the outside world.
type Publisher interface {
	PublishBidAccepted(ctx context.Context, event BidAcceptedEvent) error
}

// AMQPPublisher publishes to RabbitMQ. Connections are dialed per publish;
// bid acceptance is low-volume enough that connection churn is cheaper
// than managing a long-lived channel through broker restarts.
type AMQPPublisher struct {
	url string
}

// NewAMQPPublisher creates a publisher for the given broker URL.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

// PublishBidAccepted publishes a BidAcceptedEvent to the bid.accepted
// queue. Messages are persistent so they survive broker restarts.
func (p *AMQPPublisher) PublishBidAccepted(ctx context.Context, event BidAcceptedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		utils.Warn("rabbitmq: dial failed", map[string]any{"error": err.Error()})
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		utils.Warn("rabbitmq: channel open failed", map[string]any{"error": err.Error()})
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		BidAcceptedQueue, // name
		true,             // durable
		false,            // autoDelete
		false,            // exclusive
		false,            // noWait
		nil,              // args
	); err != nil {
		utils.Warn("rabbitmq: queue declare failed", map[string]any{"error": err.Error()})
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		utils.Warn("rabbitmq: marshal event failed", map[string]any{"error": err.Error()})
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",               // default exchange
		BidAcceptedQueue, // routing key = queue name
		false,            // mandatory
		false,            // immediate
		pub,
	); err != nil {
		utils.Warn("rabbitmq: publish failed", map[string]any{"error": err.Error()})
		return err
	}

	return nil
}

// NopPublisher discards events; used when no broker is configured.
type NopPublisher struct{}

// PublishBidAccepted discards the event.
func (NopPublisher) PublishBidAccepted(context.Context, BidAcceptedEvent) error { return nil }
