package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/cocochutney-reservations/internal/queue"
)

// QueuePublisher publishes booking events to RabbitMQ.  It dials per
// publish: confirmations are rare enough that a long-lived channel is not
// worth its reconnect handling.
type QueuePublisher struct {
	url string
}

// NewQueuePublisher returns a publisher for the broker at url.
func NewQueuePublisher(url string) *QueuePublisher { return &QueuePublisher{url: url} }

// PublishBookingConfirmed publishes ev to the durable booking.confirmed
// queue as a persistent message.  Errors are logged and returned so the
// caller can choose to ignore them.
func (p *QueuePublisher) PublishBookingConfirmed(ctx context.Context, ev q.BookingConfirmedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(q.BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	err = ch.PublishWithContext(ctx,
		"",                      // default exchange
		q.BookingConfirmedQueue, // routing key = queue name
		false,                   // mandatory
		false,                   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.BookingRef,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
