// Package publish pushes completed analysis events onto a message queue
// so downstream dashboard ingesters can pick them up. Publishing is
// optional plumbing: failures are logged by the caller, never treated as
// analysis errors.
package publish

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"servicing-insights-go/internal/types"
)

type AnalysisEvent struct {
	CallID     string            `json:"call_id"`
	Analysis   types.LLMAnalysis `json:"analysis"`
	Model      string            `json:"model"`
	AnalyzedAt string            `json:"analyzed_at"`
}

type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewPublisher connects and declares a durable queue. The caller decides
// whether a connect failure is fatal; for the sync pipeline it is not.
func NewPublisher(amqpURL, queueName string) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	return &Publisher{conn: conn, channel: ch, queue: queueName}, nil
}

func (p *Publisher) PublishAnalysis(callID string, analysis types.LLMAnalysis, model string) error {
	event := AnalysisEvent{
		CallID:     callID,
		Analysis:   analysis,
		Model:      model,
		AnalyzedAt: time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal analysis event: %w", err)
	}
	if err := p.channel.Publish(
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		return fmt.Errorf("publish analysis event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
