// Package event defines the catalog events exchanged over Kafka.
package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeCategoriesCreated = "CategoriesCreated"
	TypeCategoryUpdated   = "CategoryUpdated"
	TypeCategoryDeleted   = "CategoryDeleted"
)

// CategoryEvent announces a committed change to the category tree.
// ParentIDs names surviving categories whose children changed. ProductIDs
// is only filled for deletions, where the links are gone by the time a
// consumer could look them up.
type CategoryEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	CategoryIDs []string  `json:"category_ids"`
	ParentIDs   []string  `json:"parent_ids,omitempty"`
	ProductIDs  []string  `json:"product_ids,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewCategoryEvent(eventType string, categoryIDs, productIDs []string) CategoryEvent {
	return CategoryEvent{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		CategoryIDs: categoryIDs,
		ProductIDs:  productIDs,
		Timestamp:   time.Now().UTC(),
	}
}

// WithParents returns a copy of e with the non-nil, distinct parents set.
func (e CategoryEvent) WithParents(parentIDs ...*string) CategoryEvent {
	seen := make(map[string]struct{}, len(parentIDs))
	e.ParentIDs = nil
	for _, id := range parentIDs {
		if id == nil {
			continue
		}
		if _, ok := seen[*id]; ok {
			continue
		}
		seen[*id] = struct{}{}
		e.ParentIDs = append(e.ParentIDs, *id)
	}
	return e
}

// Producer is satisfied by broker.KafkaProducer.
type Producer interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type KafkaPublisher struct {
	producer Producer
}

func NewKafkaPublisher(producer Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// PublishCategoryEvent keys the message by the first category id so events
// about one subtree stay ordered.
func (p *KafkaPublisher) PublishCategoryEvent(ctx context.Context, evt CategoryEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	key := evt.EventID
	if len(evt.CategoryIDs) > 0 {
		key = evt.CategoryIDs[0]
	}
	return p.producer.Publish(ctx, key, payload)
}
