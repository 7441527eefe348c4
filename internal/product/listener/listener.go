// Package listener keeps product read models in step with the category
// tree by consuming category events from Kafka.
package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-catalog-service/internal/event"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
)

// MessageReader is satisfied by broker.KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type CategoryListener struct {
	consumer  MessageReader
	uc        product.UseCase
	logger    logger.ZapLogger
	retryWait time.Duration
}

func NewCategoryListener(consumer MessageReader, uc product.UseCase, log logger.ZapLogger) *CategoryListener {
	return &CategoryListener{
		consumer:  consumer,
		uc:        uc,
		logger:    log.With(zap.String("component", "category_listener")),
		retryWait: time.Second,
	}
}

// Start consumes until ctx is cancelled.
func (l *CategoryListener) Start(ctx context.Context) {
	l.logger.Info("starting category event listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("stopping category event listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("failed to read kafka message", zap.Error(err))
				time.Sleep(l.retryWait)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

func (l *CategoryListener) processMessage(ctx context.Context, value []byte) {
	var evt event.CategoryEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		l.logger.Error("failed to unmarshal category event", zap.Error(err))
		return
	}

	// Products linked to a parent embed its children, so they go stale too.
	var lookup []string
	var productIDs []string
	switch evt.EventType {
	case event.TypeCategoriesCreated:
		lookup = evt.ParentIDs
	case event.TypeCategoryUpdated:
		lookup = append(append(lookup, evt.CategoryIDs...), evt.ParentIDs...)
	case event.TypeCategoryDeleted:
		lookup = evt.ParentIDs
		productIDs = append(productIDs, evt.ProductIDs...)
	default:
		return
	}
	if len(lookup) > 0 {
		ids, err := l.uc.ProductIDsByCategories(ctx, lookup)
		if err != nil {
			l.logger.Error("failed to find products of changed categories", zap.String("event_id", evt.EventID), zap.Error(err))
			return
		}
		productIDs = distinct(append(productIDs, ids...))
	}
	if len(productIDs) == 0 {
		return
	}

	if err := l.uc.RefreshProducts(ctx, productIDs); err != nil {
		l.logger.Error("failed to refresh products", zap.String("event_id", evt.EventID), zap.Error(err))
		return
	}
	l.logger.Info("refreshed products after category change",
		zap.String("event_type", evt.EventType),
		zap.Int("products", len(productIDs)),
	)
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
