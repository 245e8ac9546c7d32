// Package service holds outbound integrations used by the HTTP handlers.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/funyblog/funyblog/internal/queue"
)

const dialTimeout = 2 * time.Second

// AuditPublisher sends LoginEvent messages to the durable auth.login queue.
// It dials per publish; login traffic is low and this keeps no connection
// state to repair after a broker restart.
type AuditPublisher struct {
	url string
	now func() time.Time
}

// NewAuditPublisher returns nil when url is empty so callers can treat a
// missing broker as "auditing disabled".
func NewAuditPublisher(url string) *AuditPublisher {
	if url == "" {
		return nil
	}
	return &AuditPublisher{url: url, now: time.Now}
}

// PublishLogin marks the message persistent and routes it through the
// default exchange.
func (p *AuditPublisher) PublishLogin(ctx context.Context, ev queue.LoginEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return fmt.Errorf("audit: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("audit: channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.LoginQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("audit: queue declare: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.LoginQueue, false, false, msg); err != nil {
		return fmt.Errorf("audit: publish: %w", err)
	}
	return nil
}
