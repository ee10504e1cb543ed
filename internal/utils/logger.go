package utils

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"library-lending/internal/lending"
	"library-lending/internal/models"
)

const systemActor = "system"

// Logger writes audit entries to a Mongo collection for the exporter daemon.
type Logger struct {
	Collection *mongo.Collection
}

func (l *Logger) Log(ctx context.Context, entity, action string, data any) error {
	log := models.AuditLog{
		Timestamp:   time.Now(),
		Entity:      entity,
		EntityID:    models.AuditEntityID(data),
		Action:      action,
		PerformedBy: performedBy(ctx),
		Data:        data,
	}
	_, err := l.Collection.InsertOne(ctx, log)
	return err
}

// ZapAuditLogger writes audit entries straight to the application log, for
// stores that have no audit collection.
type ZapAuditLogger struct {
	Logger *zap.Logger
}

func (l ZapAuditLogger) Log(ctx context.Context, entity, action string, data any) error {
	l.Logger.Info("audit",
		zap.String("entity", entity),
		zap.String("entity_id", models.AuditEntityID(data)),
		zap.String("action", action),
		zap.String("performed_by", performedBy(ctx)),
		zap.Any("data", data),
	)
	return nil
}

func performedBy(ctx context.Context) string {
	if c, ok := lending.CallerFrom(ctx); ok && c.ID != "" {
		return c.ID
	}
	return systemActor
}

// NewLogger builds the production zap logger at level ("debug", "info", ...).
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
