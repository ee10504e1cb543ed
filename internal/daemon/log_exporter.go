package daemon

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"library-lending/internal/models"
	"library-lending/internal/utils"
)

const DefaultExportInterval = 30 * time.Second

// LogExporter periodically ships audit entries that have not been exported
// yet and flags them as exported.
type LogExporter struct {
	Coll     *mongo.Collection
	Log      *zap.Logger
	Interval time.Duration
}

// Run blocks until ctx is cancelled.
func (l *LogExporter) Run(ctx context.Context) {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultExportInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := l.ExportOnce(ctx); err != nil {
			l.Log.Warn("audit export failed", zap.Error(err))
		} else if n > 0 {
			l.Log.Debug("audit entries exported", zap.Int("count", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (l *LogExporter) ExportOnce(ctx context.Context) (int, error) {
	cursor, err := l.Coll.Find(ctx, bson.M{"exported": false})
	if err != nil {
		return 0, errors.Wrap(err, "find unexported audit logs")
	}

	var logs []models.AuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return 0, errors.Wrap(err, "decode audit logs")
	}
	if len(logs) == 0 {
		return 0, nil
	}

	if err := utils.ExportData(l.Log, logs); err != nil {
		return 0, errors.Wrap(err, "export audit logs")
	}

	ids := make([]primitive.ObjectID, 0, len(logs))
	for _, entry := range logs {
		ids = append(ids, entry.ID)
	}
	_, err = l.Coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": bson.M{"exported": true, "exported_at": time.Now()}})
	if err != nil {
		return 0, errors.Wrap(err, "mark audit logs exported")
	}
	return len(logs), nil
}
