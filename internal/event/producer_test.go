package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/brand-service/internal/domain"
	pkgkafka "github.com/utafrali/brand-service/pkg/kafka"
	"github.com/utafrali/brand-service/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type recordingPublisher struct {
	sent []published
	err  error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, published{topic: topic, event: event})
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func sampleBrand() *domain.Brand {
	return &domain.Brand{
		ID:          "brand-1",
		Name:        "nike",
		DisplayName: strPtr("Nike"),
		LogoURL:     strPtr("https://example.com/logos/nike.png"),
		IsActive:    true,
	}
}

func TestPublishBrandCreated(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewProducer(rec, newTestLogger())

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	ctx = logger.WithUserRole(logger.WithUserID(ctx, "user-9"), "admin")

	require.NoError(t, p.PublishBrandCreated(ctx, sampleBrand()))
	require.Len(t, rec.sent, 1)

	got := rec.sent[0]
	assert.Equal(t, TopicBrandCreated, got.topic)
	assert.Equal(t, TopicBrandCreated, got.event.EventType)
	assert.Equal(t, "brand-1", got.event.AggregateID)
	assert.Equal(t, AggregateTypeBrand, got.event.AggregateType)
	assert.Equal(t, SourceBrandService, got.event.Source)
	assert.Equal(t, "corr-1", got.event.CorrelationID)
	assert.Equal(t, map[string]string{"user_id": "user-9", "user_role": "admin"}, got.event.Metadata)

	var data BrandData
	require.NoError(t, json.Unmarshal(got.event.Data, &data))
	assert.Equal(t, "nike", data.Name)
	assert.Equal(t, "Nike", *data.DisplayName)
	assert.True(t, data.IsActive)
}

func TestPublishBrandUpdated_ChangedFields(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewProducer(rec, newTestLogger())

	require.NoError(t, p.PublishBrandUpdated(context.Background(), sampleBrand(), []string{"name", "is_active"}))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, TopicBrandUpdated, rec.sent[0].topic)
	assert.Empty(t, rec.sent[0].event.CorrelationID)
	assert.Nil(t, rec.sent[0].event.Metadata)

	var data map[string]any
	require.NoError(t, json.Unmarshal(rec.sent[0].event.Data, &data))
	assert.Equal(t, "brand-1", data["id"])
	assert.Equal(t, []any{"name", "is_active"}, data["changed_fields"])
}

func TestPublishBrandUpdated_NoChangedFieldsEncodesEmptyList(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewProducer(rec, newTestLogger())

	require.NoError(t, p.PublishBrandUpdated(context.Background(), sampleBrand(), nil))

	var data map[string]any
	require.NoError(t, json.Unmarshal(rec.sent[0].event.Data, &data))
	assert.Equal(t, []any{}, data["changed_fields"])
}

func TestPublishBrandDeleted(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewProducer(rec, newTestLogger())

	require.NoError(t, p.PublishBrandDeleted(context.Background(), "brand-1"))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, TopicBrandDeleted, rec.sent[0].topic)
	assert.JSONEq(t, `{"id":"brand-1"}`, string(rec.sent[0].event.Data))
}

func TestPublish_WrapsTransportError(t *testing.T) {
	p := NewProducer(&recordingPublisher{err: errors.New("broker unreachable")}, newTestLogger())

	err := p.PublishBrandDeleted(context.Background(), "brand-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish brand.deleted event")
	assert.Contains(t, err.Error(), "broker unreachable")
}

func TestNopPublisher(t *testing.T) {
	p := NewProducer(NopPublisher{}, newTestLogger())
	assert.NoError(t, p.PublishBrandCreated(context.Background(), sampleBrand()))
}
