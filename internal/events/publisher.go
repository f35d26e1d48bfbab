package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/roshiend/retail-Link-sub000/internal/importer"
	"github.com/roshiend/retail-Link-sub000/internal/models"
)

const (
	StreamName = "RETAIL_LINK"

	ProductCreated  = "product.created"
	ProductUpdated  = "product.updated"
	ProductDeleted  = "product.deleted"
	ImportCompleted = "import.completed"
)

// Event is the envelope of every message on the stream
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	ShopID    string                 `json:"shop_id"`
	ActorID   string                 `json:"actor_id,omitempty"`
	EntityID  string                 `json:"entity_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Publisher sends domain events to NATS JetStream. A nil Publisher drops
// events, so the service runs without NATS.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
	now    func() time.Time
}

// NewPublisher connects to NATS and makes sure the stream exists
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("retail-link-publisher"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open JetStream context: %w", err)
	}

	log := logger.WithField("component", "events.publisher")
	if _, err := js.StreamInfo(StreamName); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     StreamName,
			Subjects: []string{"product.>", "import.>"},
		})
		if err != nil {
			log.WithError(err).Warn("Failed to ensure event stream (may already exist)")
		}
	}

	return &Publisher{conn: conn, js: js, logger: log, now: time.Now}, nil
}

// Close drains the NATS connection
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// PublishProductCreated publishes a product.created event
func (p *Publisher) PublishProductCreated(ctx context.Context, product *models.Product, actorID string) error {
	return p.publish(ctx, p.productEvent(ProductCreated, product, actorID))
}

// PublishProductUpdated publishes a product.updated event
func (p *Publisher) PublishProductUpdated(ctx context.Context, product *models.Product, actorID string) error {
	return p.publish(ctx, p.productEvent(ProductUpdated, product, actorID))
}

// PublishProductDeleted publishes a product.deleted event for each id
func (p *Publisher) PublishProductDeleted(ctx context.Context, shopID uuid.UUID, productIDs []uuid.UUID, actorID string) error {
	if p == nil {
		return nil
	}
	for _, id := range productIDs {
		event := p.newEvent(ProductDeleted, shopID, actorID)
		event.EntityID = id.String()
		if err := p.publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// PublishImportCompleted publishes the counts of a finished bulk upload
func (p *Publisher) PublishImportCompleted(ctx context.Context, shopID uuid.UUID, entity string, report *importer.Report, actorID string) error {
	if p == nil {
		return nil
	}
	event := p.newEvent(ImportCompleted, shopID, actorID)
	event.Data = map[string]interface{}{
		"entity":        entity,
		"total_rows":    report.TotalRows,
		"created_count": report.CreatedCount,
		"updated_count": report.UpdatedCount,
		"failed_count":  report.FailedCount,
	}
	return p.publish(ctx, event)
}

func (p *Publisher) newEvent(eventType string, shopID uuid.UUID, actorID string) *Event {
	now := time.Now
	if p != nil && p.now != nil {
		now = p.now
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ShopID:    shopID.String(),
		ActorID:   actorID,
		Timestamp: now().UTC(),
	}
}

func (p *Publisher) productEvent(eventType string, product *models.Product, actorID string) *Event {
	event := p.newEvent(eventType, product.ShopID, actorID)
	event.EntityID = product.ID.String()
	event.Data = map[string]interface{}{
		"name":          product.Name,
		"code":          product.Code,
		"price":         product.Price.String(),
		"active":        product.Active,
		"variant_count": len(product.Variants),
	}
	if product.SKU != nil {
		event.Data["sku"] = *product.SKU
	}
	return event
}

func (p *Publisher) publish(ctx context.Context, event *Event) error {
	if p == nil || p.js == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	if _, err := p.js.Publish(event.Type, data, nats.Context(ctx), nats.MsgId(event.ID)); err != nil {
		p.logger.WithError(err).WithField("event_type", event.Type).Error("Failed to publish event")
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	p.logger.WithFields(logrus.Fields{
		"event_type": event.Type,
		"shop_id":    event.ShopID,
		"entity_id":  event.EntityID,
	}).Debug("Published event")
	return nil
}
