package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"library-lending/configs"
	"library-lending/internal/daemon"
	"library-lending/internal/db"
	"library-lending/internal/handlers"
	"library-lending/internal/lending"
	"library-lending/internal/store/memstore"
	"library-lending/internal/store/mongostore"
	"library-lending/internal/store/pgstore"
	"library-lending/internal/utils"
)

const auditCollection = "audit_logs"

// backend bundles the stores of the configured driver.
type backend struct {
	borrowals lending.Store
	books     handlers.BookStore
	users     handlers.UserStore
	audit     lending.AuditLogger
	close     func(context.Context)
}

// openBackend connects the configured driver. When startDaemons is set the
// Mongo audit exporter runs until ctx is cancelled.
func openBackend(ctx context.Context, cfg configs.Config, log *zap.Logger, startDaemons bool) (*backend, error) {
	switch cfg.StoreDriver {
	case configs.DriverMongo:
		client, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		database := client.Database(cfg.DBName)
		store := mongostore.New(database)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}

		auditColl := database.Collection(auditCollection)
		if startDaemons {
			exporter := &daemon.LogExporter{Coll: auditColl, Log: log, Interval: cfg.AuditExportInterval}
			go exporter.Run(ctx)
		}

		log.Info("using mongo store", zap.String("db", cfg.DBName))
		return &backend{
			borrowals: store,
			books:     store,
			users:     store,
			audit:     &utils.Logger{Collection: auditColl},
			close: func(ctx context.Context) {
				if err := client.Disconnect(ctx); err != nil {
					log.Warn("mongo disconnect failed", zap.Error(err))
				}
			},
		}, nil

	case configs.DriverPostgres:
		pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		store := pgstore.New(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}

		log.Info("using postgres store")
		return &backend{
			borrowals: store,
			books:     store,
			users:     store,
			audit:     utils.ZapAuditLogger{Logger: log},
			close:     func(context.Context) { pool.Close() },
		}, nil

	case configs.DriverMemory:
		store := memstore.New()
		log.Warn("using in-memory store, data is lost on exit")
		return &backend{
			borrowals: store,
			books:     store,
			users:     store,
			audit:     utils.ZapAuditLogger{Logger: log},
			close:     func(context.Context) {},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
