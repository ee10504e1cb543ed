package daemon_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"library-lending/internal/daemon"
)

func TestLogExporter_ExportOnce(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("exports and flags entries", func(mt *mtest.T) {
		core, logs := observer.New(zap.InfoLevel)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{
					{Key: "_id", Value: primitive.NewObjectID()},
					{Key: "timestamp", Value: primitive.NewDateTimeFromTime(time.Now())},
					{Key: "entity", Value: "borrowal"},
					{Key: "action", Value: "CHECK_OUT"},
					{Key: "performed_by", Value: "admin-1"},
					{Key: "exported", Value: false},
				},
				bson.D{
					{Key: "_id", Value: primitive.NewObjectID()},
					{Key: "entity", Value: "borrowal"},
					{Key: "action", Value: "PAY_FINE"},
					{Key: "exported", Value: false},
				},
			),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 2}),
		)

		exporter := daemon.LogExporter{Coll: mt.Coll, Log: zap.New(core)}
		n, err := exporter.ExportOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 2, logs.FilterMessage("audit export").Len())
	})

	mt.Run("nothing to export", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		exporter := daemon.LogExporter{Coll: mt.Coll, Log: zap.NewNop()}
		n, err := exporter.ExportOnce(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	mt.Run("run stops with its context", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		exporter := daemon.LogExporter{Coll: mt.Coll, Log: zap.NewNop(), Interval: time.Hour}
		go func() {
			exporter.Run(ctx)
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("exporter did not stop")
		}
	})
}
