package app

import (
	"context"

	"github.com/carousell/ct-go/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/artbid/marketplace/internal/config"
	"github.com/artbid/marketplace/internal/kafka"
	"github.com/artbid/marketplace/internal/repo/mongodb"
	"github.com/artbid/marketplace/internal/server"
	"github.com/artbid/marketplace/internal/usecase"
)

func Invoke(funcs ...any) *fx.App {
	log := logger.MustNamed("app")
	conf := config.MustLoad()
	log.Debugw("config loaded", log.Reflect("config", conf))
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Unwrap().Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Provide(
			newMongoDB,
			newImageStore,

			kafka.NewPublisher,

			server.NewController,

			usecase.NewProductUsecase,

			mongodb.NewProductRepository,
			mongodb.NewBidRepository,
			mongodb.NewUserRepository,
		),
		fx.Supply(conf),
		fx.Invoke(EnsureIndexes),
		fx.Invoke(funcs...),
	)
}

// EnsureIndexes creates the required indexes once the database is up.
func EnsureIndexes(lc fx.Lifecycle, db *mongodb.DB) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return mongodb.EnsureIndexes(ctx, db)
		},
	})
}
