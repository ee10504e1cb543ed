package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLog is one recorded mutation. Exported flips once the exporter
// daemon has shipped the entry.
type AuditLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
	Entity      string             `bson:"entity" json:"entity"`
	EntityID    string             `bson:"entity_id,omitempty" json:"entity_id,omitempty"`
	Action      string             `bson:"action" json:"action"`
	PerformedBy string             `bson:"performed_by" json:"performed_by"` // user id or "system"
	Data        any                `bson:"data" json:"data"`
	Exported    bool               `bson:"exported" json:"exported"`
	ExportedAt  *time.Time         `bson:"exported_at,omitempty" json:"exported_at,omitempty"`
}

// AuditEntityID picks the id of the record an audit payload is about.
func AuditEntityID(data any) string {
	switch v := data.(type) {
	case *Borrowal:
		if v != nil {
			return v.ID
		}
	case *Book:
		if v != nil {
			return v.ID
		}
	case *User:
		if v != nil {
			return v.ID
		}
	case Borrowal:
		return v.ID
	case Book:
		return v.ID
	case User:
		return v.ID
	case map[string]any:
		for _, key := range []string{"borrowal", "book", "user"} {
			if inner, ok := v[key]; ok {
				return AuditEntityID(inner)
			}
		}
		if id, ok := v["user_id"].(string); ok {
			return id
		}
	}
	return ""
}
