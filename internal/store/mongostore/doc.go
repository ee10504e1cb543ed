// Package mongostore persists books, users and borrowals in MongoDB using
// the collection layout of the original mongoose models.
package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"library-lending/internal/apperr"
)

const (
	BorrowalsCollection = "borrowals"
	BooksCollection     = "books"
	UsersCollection     = "users"
)

var looseLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// looseTime decodes a BSON date, or a date string written by older clients.
// Anything else decodes to the zero time instead of failing the read.
type looseTime struct {
	time.Time
}

func (t looseTime) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(t.Time)
}

func (t *looseTime) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: typ, Value: data}
	t.Time = time.Time{}

	switch typ {
	case bson.TypeDateTime:
		t.Time = raw.Time().UTC()
	case bson.TypeString:
		s := raw.StringValue()
		for _, layout := range looseLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				t.Time = parsed
				break
			}
		}
	}
	return nil
}

func objectID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("Invalid " + what + " id")
	}
	return id, nil
}

func hexOrEmpty(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}

func optionalObjectID(hex string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}
