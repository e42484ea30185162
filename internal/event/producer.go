package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/brand-service/internal/domain"
	pkgkafka "github.com/utafrali/brand-service/pkg/kafka"
	"github.com/utafrali/brand-service/pkg/logger"
)

// Kafka topic constants for brand domain events.
const (
	TopicBrandCreated = "brand.created"
	TopicBrandUpdated = "brand.updated"
	TopicBrandDeleted = "brand.deleted"
)

// Aggregate type constant.
const AggregateTypeBrand = "brand"

// Source identifier for events originating from the brand service.
const SourceBrandService = "brand-service"

// BrandData is the brand snapshot carried by created and updated events.
type BrandData struct {
	ID              string  `json:"id"`
	ExternalBrandID *string `json:"external_brand_id,omitempty"`
	Name            string  `json:"name"`
	DisplayName     *string `json:"display_name,omitempty"`
	Description     *string `json:"description,omitempty"`
	LogoURL         *string `json:"logo_url,omitempty"`
	IsActive        bool    `json:"is_active"`
}

// BrandUpdatedData is the payload for a brand.updated event.
type BrandUpdatedData struct {
	BrandData
	ChangedFields []string `json:"changed_fields"`
}

// BrandDeletedData is the payload for a brand.deleted event.
type BrandDeletedData struct {
	ID string `json:"id"`
}

// Publisher sends an event envelope to a topic. *pkgkafka.Producer
// implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes brand domain events.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the brand service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishBrandCreated publishes a brand.created event.
func (p *Producer) PublishBrandCreated(ctx context.Context, brand *domain.Brand) error {
	return p.publish(ctx, TopicBrandCreated, brand.ID, snapshot(brand))
}

// PublishBrandUpdated publishes a brand.updated event listing the attributes
// the request supplied.
func (p *Producer) PublishBrandUpdated(ctx context.Context, brand *domain.Brand, changed []string) error {
	if changed == nil {
		changed = []string{}
	}
	return p.publish(ctx, TopicBrandUpdated, brand.ID, BrandUpdatedData{
		BrandData:     snapshot(brand),
		ChangedFields: changed,
	})
}

// PublishBrandDeleted publishes a brand.deleted event.
func (p *Producer) PublishBrandDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicBrandDeleted, id, BrandDeletedData{ID: id})
}

func (p *Producer) publish(ctx context.Context, topic, brandID string, data any) error {
	event, err := pkgkafka.NewEvent(topic,
		pkgkafka.Aggregate{Type: AggregateTypeBrand, ID: brandID},
		SourceBrandService,
		data,
		pkgkafka.WithCorrelationID(logger.CorrelationIDFromContext(ctx)),
		pkgkafka.WithMetadata("user_id", logger.UserIDFromContext(ctx)),
		pkgkafka.WithMetadata("user_role", logger.UserRoleFromContext(ctx)),
	)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published brand event",
		slog.String("topic", topic),
		slog.String("brand_id", brandID),
		slog.String("event_id", event.EventID),
	)

	return nil
}

func snapshot(b *domain.Brand) BrandData {
	return BrandData{
		ID:              b.ID,
		ExternalBrandID: b.ExternalBrandID,
		Name:            b.Name,
		DisplayName:     b.DisplayName,
		Description:     b.Description,
		LogoURL:         b.LogoURL,
		IsActive:        b.IsActive,
	}
}

// NopPublisher drops every event. It stands in for Kafka when publishing is
// disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }
