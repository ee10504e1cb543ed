package utils

import (
	"go.uber.org/zap"

	"library-lending/internal/models"
)

func ExportData(log *zap.Logger, logs []models.AuditLog) error {
	for _, entry := range logs {
		log.Info("audit export",
			zap.String("id", entry.ID.Hex()),
			zap.Time("timestamp", entry.Timestamp),
			zap.String("entity", entry.Entity),
			zap.String("entity_id", entry.EntityID),
			zap.String("action", entry.Action),
			zap.String("performed_by", entry.PerformedBy),
			zap.Any("data", entry.Data),
		)
	}
	return nil
}
