package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"PersonalQT/internal/domain/models"
	drepo "PersonalQT/internal/domain/repository"
	pkgkafka "PersonalQT/pkg/kafka"
	applogger "PersonalQT/pkg/logger"
)

// ChangeNotice announces that a collection changed on the backend.
type ChangeNotice struct {
	Collection string `json:"collection"`
}

// ChangeHandler refreshes a collection whenever a notice for it arrives on
// the changes topic.
type ChangeHandler struct {
	topic   string
	loader  *Loader
	metrics drepo.Metrics
	log     *applogger.Logger
}

// NewChangeHandler creates a handler for topic.
func NewChangeHandler(topic string, loader *Loader, metrics drepo.Metrics, l *applogger.Logger) *ChangeHandler {
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &ChangeHandler{topic: topic, loader: loader, metrics: metrics, log: l.Named("changes")}
}

func (h *ChangeHandler) Topic() string { return h.topic }

// Handle drops the cached copy and refetches. Malformed notices are logged
// and acknowledged; a failed refetch is returned so the consumer retries.
func (h *ChangeHandler) Handle(ctx context.Context, b []byte) error {
	var n ChangeNotice
	if err := json.Unmarshal(b, &n); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.log.Warn("malformed change notice", applogger.Error(err))
		return nil
	}
	c, err := models.ParseCollection(n.Collection)
	if err != nil {
		h.metrics.RecordError("consumer_collection")
		h.log.Warn("change notice for unknown collection", applogger.String("collection", n.Collection))
		return nil
	}

	if err := h.loader.Invalidate(ctx, c); err != nil {
		h.log.Warn("cache invalidate failed", applogger.String("collection", c.String()), applogger.Error(err))
	}
	count, err := h.loader.Fetch(ctx, c, Force())
	if err != nil {
		return fmt.Errorf("refresh %s: %w", c, err)
	}
	h.log.Info("collection refreshed from notice",
		applogger.String("collection", c.String()),
		applogger.Int("count", count),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*ChangeHandler)(nil)
