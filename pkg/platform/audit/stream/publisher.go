// Package stream mirrors stored audit entries onto a Kafka topic so report
// tooling can follow the trail without polling the database.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "datatrail/pkg/platform/audit"
	"datatrail/pkg/requestcontext"
)

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher writes each entry as a JSON record keyed by table and record id,
// so all history for one record lands on one partition in order.
type Publisher struct {
	producer Producer
	topic    string
}

var _ audit.Mirror = (*Publisher)(nil)

// New creates a Publisher for topic.
func New(producer Producer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// Publish produces entry synchronously.
func (p *Publisher) Publish(ctx context.Context, entry audit.Entry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(Key(entry)),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(entry.Kind)},
			{Key: "table", Value: []byte(entry.TableName)},
		},
	}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: "request_id", Value: []byte(reqID)})
	}

	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entry to %s: %w", p.topic, err)
	}
	return nil
}

// Key returns the partition key for entry.
func Key(entry audit.Entry) string {
	if entry.RecordID == nil {
		return entry.TableName
	}
	return entry.TableName + ":" + strconv.FormatInt(*entry.RecordID, 10)
}
