package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestLooseTime(t *testing.T) {
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  time.Time
	}{
		{"bson date", want, want},
		{"date string", "2024-01-15", want},
		{"rfc3339 string", "2024-01-15T00:00:00Z", want},
		{"garbage string", "next tuesday", time.Time{}},
		{"number", int32(42), time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := bson.Marshal(bson.D{{Key: "due", Value: tt.value}})
			require.NoError(t, err)

			var out struct {
				Due looseTime `bson:"due"`
			}
			require.NoError(t, bson.Unmarshal(raw, &out))
			assert.True(t, tt.want.Equal(out.Due.Time), "got %v", out.Due.Time)
		})
	}
}

func TestLooseTimeWritesBSONDate(t *testing.T) {
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	raw, err := bson.Marshal(struct {
		Due looseTime `bson:"due"`
	}{looseTime{want}})
	require.NoError(t, err)

	v := bson.Raw(raw).Lookup("due")
	assert.Equal(t, bson.TypeDateTime, v.Type)
	assert.True(t, want.Equal(v.Time()))
}
