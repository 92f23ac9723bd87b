package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/recipe"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/shopping"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type PublishRecorder interface {
	ObservePublish(event, outcome string)
}

type PublisherOptions struct {
	Producer string
	// Correlation extracts the request correlation id from a context.
	Correlation func(ctx context.Context) string
	Recorder    PublishRecorder
	Logger      zerolog.Logger
	// FailureThreshold is the number of consecutive publish failures that opens the breaker.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Publisher sends enveloped domain events to the topic exchange.
type Publisher struct {
	ch          Channel
	seq         Sequencer
	producer    string
	correlation func(ctx context.Context) string
	recorder    PublishRecorder
	breaker     *gobreaker.CircuitBreaker[struct{}]
	now         func() time.Time
	logger      zerolog.Logger
}

func NewPublisher(conn *amqp.Connection, seq Sequencer, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return newPublisher(ch, seq, opts), nil
}

func newPublisher(ch Channel, seq Sequencer, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = "kitchen-assistant"
	}
	threshold := opts.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := opts.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	p := &Publisher{
		ch:          ch,
		seq:         seq,
		producer:    producer,
		correlation: opts.Correlation,
		recorder:    opts.Recorder,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      opts.Logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "rabbitmq-publisher",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return p
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) meta(ctx context.Context, partitionKey string) EventMeta {
	m := EventMeta{PartitionKey: partitionKey}
	if p.correlation != nil {
		m.CorrelationID = p.correlation(ctx)
	}
	return m
}

func (p *Publisher) PublishRecipePublished(ctx context.Context, r recipe.Recipe) error {
	now := p.now()
	meta := p.meta(ctx, authorPartition(r.Author.ID))

	seq, err := p.seq.NextSequence(ctx, meta.PartitionKey)
	if err != nil {
		p.observe(EventTypeRecipePublished, "failed")
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := newRecipePublishedEvent(meta, seq, p.producer, recipePublishedPayload(r, now), now)
	body, err := json.Marshal(env)
	if err != nil {
		p.observe(EventTypeRecipePublished, "failed")
		return fmt.Errorf("marshal RecipePublished envelope: %w", err)
	}
	return p.publish(ctx, EventTypeRecipePublished, RecipePublishedRoutingKey, body)
}

func (p *Publisher) PublishShoppingListExported(ctx context.Context, userID int64, report shopping.Report) error {
	now := p.now()
	meta := p.meta(ctx, userPartition(userID))

	seq, err := p.seq.NextSequence(ctx, meta.PartitionKey)
	if err != nil {
		p.observe(EventTypeShoppingListExported, "failed")
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := newShoppingListExportedEvent(meta, seq, p.producer, shoppingListExportedPayload(userID, report, now), now)
	body, err := json.Marshal(env)
	if err != nil {
		p.observe(EventTypeShoppingListExported, "failed")
		return fmt.Errorf("marshal ShoppingListExported envelope: %w", err)
	}
	return p.publish(ctx, EventTypeShoppingListExported, ShoppingListExportedRoutingKey, body)
}

func (p *Publisher) publish(ctx context.Context, event, routingKey string, body []byte) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publishJSON(ctx, routingKey, body)
	})
	switch {
	case err == nil:
		p.observe(event, "ok")
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		p.observe(event, "rejected")
	default:
		p.observe(event, "failed")
	}
	return fmt.Errorf("publish %s: %w", event, err)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
			Body:         body,
		},
	)
}

func (p *Publisher) observe(event, outcome string) {
	if p.recorder != nil {
		p.recorder.ObservePublish(event, outcome)
	}
}

// Nop drops every event. It is used when publishing is disabled.
type Nop struct{}

func (Nop) PublishRecipePublished(context.Context, recipe.Recipe) error { return nil }

func (Nop) PublishShoppingListExported(context.Context, int64, shopping.Report) error { return nil }

func (Nop) Close() error { return nil }
