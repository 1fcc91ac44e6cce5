package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/carousell/ct-go/pkg/logger"
	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/artbid/marketplace/internal/config"
	pkgmdw "github.com/artbid/marketplace/internal/server/middleware"
)

func StartServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	handler Controller,
) {
	e := echo.New()
	e.Validator = pkgmdw.NewValidator()
	e.HTTPErrorHandler = pkgmdw.ErrorHandler(logger.MustNamed("http"))

	logConfig := pkgmdw.LogRequestConfig{
		Logger: logger.MustNamed("http"),
		Enabled: func(c echo.Context) bool {
			uri := c.Request().RequestURI
			return uri != "/health" && uri != "/metrics"
		},
		KeyAndValues: func(c echo.Context) []any {
			args := make([]any, 0, 2)
			if c.Get(pkgmdw.ContextUserID) != nil {
				args = append(args, "user_id", c.Get(pkgmdw.ContextUserID))
			}
			return args
		},
	}

	e.Use(pkgmdw.Metrics())
	e.Use(pkgmdw.RequestID())
	e.Use(pkgmdw.LogRequest(logConfig))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw(c.Request().Context(), "PANIC RECOVER", "error", err, "stack", string(stack))
			return nil
		},
	}))

	e.GET("/health", handler.Health)

	auth := pkgmdw.JWTAuth(conf.Auth.JWTSecret)

	api := e.Group("/api/products")
	api.GET("", handler.ListAll)
	api.GET("/sold", handler.ListSold)
	api.GET("/slug/:slug", handler.GetBySlug)
	api.POST("", handler.Create, auth)
	api.GET("/user", handler.ListMine, auth)
	api.GET("/won", handler.ListWon, auth)
	api.GET("/:id", handler.Get)
	api.PUT("/:id", handler.Update, auth)
	api.DELETE("/:id", handler.Delete, auth)

	admin := api.Group("/admin", auth, pkgmdw.RequireAdmin())
	admin.GET("", handler.AdminList)
	admin.PATCH("/:id/verify", handler.AdminVerify)
	admin.POST("/delete", handler.AdminDelete)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow(ctx, "starting HTTP server", "addr", conf.Server.Addr)
				if err := e.Start(conf.Server.Addr); !errors.Is(err, http.ErrServerClosed) {
					sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
