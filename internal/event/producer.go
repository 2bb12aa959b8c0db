package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkgkafka "github.com/utafrali/search-provisioner/pkg/kafka"
)

// Kafka topic constants for search infrastructure lifecycle events.
const (
	TopicIndexProvisioned = "ecommerce.search.index_provisioned"
	TopicCatalogSeeded    = "ecommerce.search.catalog_seeded"
	TopicDumpCompleted    = "ecommerce.search.dump_completed"
	TopicDumpFailed       = "ecommerce.search.dump_failed"
)

// Aggregate type constant.
const AggregateTypeIndex = "search_index"

// Source identifier for events originating from the provisioner.
const SourceProvisioner = "search-provisioner"

// IndexProvisionedData is the payload for an index_provisioned event.
type IndexProvisionedData struct {
	IndexUID    string        `json:"index_uid"`
	PrimaryKey  string        `json:"primary_key"`
	Created     bool          `json:"created"`
	KeysCreated []string      `json:"keys_created,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// CatalogSeededData is the payload for a catalog_seeded event.
type CatalogSeededData struct {
	IndexUID  string        `json:"index_uid"`
	Documents int           `json:"documents"`
	Batches   int           `json:"batches"`
	Duration  time.Duration `json:"duration_ns"`
}

// DumpCompletedData is the payload for a dump_completed event.
type DumpCompletedData struct {
	TaskUID  int64         `json:"task_uid"`
	Duration time.Duration `json:"duration_ns"`
}

// DumpFailedData is the payload for a dump_failed event.
type DumpFailedData struct {
	TaskUID int64  `json:"task_uid"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Producer publishes search infrastructure lifecycle events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the provisioner.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishIndexProvisioned publishes an index_provisioned event.
func (p *Producer) PublishIndexProvisioned(ctx context.Context, data IndexProvisionedData) error {
	event, err := pkgkafka.NewEvent(TopicIndexProvisioned, data.IndexUID, AggregateTypeIndex, SourceProvisioner, data)
	if err != nil {
		return fmt.Errorf("create index_provisioned event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicIndexProvisioned, event); err != nil {
		return fmt.Errorf("publish index_provisioned event: %w", err)
	}

	p.logger.DebugContext(ctx, "published index_provisioned event",
		slog.String("index_uid", data.IndexUID),
		slog.Bool("created", data.Created),
	)

	return nil
}

// PublishCatalogSeeded publishes a catalog_seeded event.
func (p *Producer) PublishCatalogSeeded(ctx context.Context, data CatalogSeededData) error {
	event, err := pkgkafka.NewEvent(TopicCatalogSeeded, data.IndexUID, AggregateTypeIndex, SourceProvisioner, data)
	if err != nil {
		return fmt.Errorf("create catalog_seeded event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCatalogSeeded, event); err != nil {
		return fmt.Errorf("publish catalog_seeded event: %w", err)
	}

	p.logger.DebugContext(ctx, "published catalog_seeded event",
		slog.String("index_uid", data.IndexUID),
		slog.Int("documents", data.Documents),
	)

	return nil
}

// PublishDumpCompleted publishes a dump_completed event.
func (p *Producer) PublishDumpCompleted(ctx context.Context, data DumpCompletedData) error {
	aggregateID := fmt.Sprintf("dump-%d", data.TaskUID)
	event, err := pkgkafka.NewEvent(TopicDumpCompleted, aggregateID, AggregateTypeIndex, SourceProvisioner, data)
	if err != nil {
		return fmt.Errorf("create dump_completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicDumpCompleted, event); err != nil {
		return fmt.Errorf("publish dump_completed event: %w", err)
	}

	return nil
}

// PublishDumpFailed publishes a dump_failed event.
func (p *Producer) PublishDumpFailed(ctx context.Context, data DumpFailedData) error {
	aggregateID := fmt.Sprintf("dump-%d", data.TaskUID)
	event, err := pkgkafka.NewEvent(TopicDumpFailed, aggregateID, AggregateTypeIndex, SourceProvisioner, data)
	if err != nil {
		return fmt.Errorf("create dump_failed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicDumpFailed, event); err != nil {
		return fmt.Errorf("publish dump_failed event: %w", err)
	}

	return nil
}
