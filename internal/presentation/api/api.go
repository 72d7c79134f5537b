package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hearthlabs/hearth/internal/infrastructure/configs"
	"github.com/hearthlabs/hearth/internal/infrastructure/logging"
	"github.com/hearthlabs/hearth/internal/infrastructure/ratelimiter"
	healthHandler "github.com/hearthlabs/hearth/internal/presentation/handler/health"
	moderationHandler "github.com/hearthlabs/hearth/internal/presentation/handler/moderation"
	roomHandler "github.com/hearthlabs/hearth/internal/presentation/handler/rooms"
	sessionHandler "github.com/hearthlabs/hearth/internal/presentation/handler/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Application is the local control surface the UI shell talks to. It
// binds to loopback by default; there is no auth layer because the
// daemon serves exactly one user on their own machine.
type Application struct {
	config            configs.Config
	roomHandler       *roomHandler.Handler
	sessionHandler    *sessionHandler.Handler
	moderationHandler *moderationHandler.Handler
	healthHandler     *healthHandler.Handler
	logger            logging.Logger
	sugar             *zap.SugaredLogger
	ratelimiter       ratelimiter.Limiter

	// OnShutdown runs after the listener stops accepting but before
	// Run returns, while there is still time for a leave signal.
	OnShutdown func()
}

func NewApplication(
	config configs.Config,
	roomHandler *roomHandler.Handler,
	sessionHandler *sessionHandler.Handler,
	moderationHandler *moderationHandler.Handler,
	healthHandler *healthHandler.Handler,
	logger logging.Logger,
	sugar *zap.SugaredLogger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:            config,
		roomHandler:       roomHandler,
		sessionHandler:    sessionHandler,
		moderationHandler: moderationHandler,
		healthHandler:     healthHandler,
		logger:            logger,
		sugar:             sugar,
		ratelimiter:       ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(app.rateLimiterMiddleware)
	r.Use(app.enableCors)
	r.Use(app.loggerMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", app.roomHandler.GetLiveRoomsHandler)
			r.Get("/upcoming", app.roomHandler.GetUpcomingRoomsHandler)
			r.Post("/", app.roomHandler.CreateRoomHandler)
			r.Delete("/{roomId}", app.roomHandler.DeleteRoomHandler)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", app.sessionHandler.GetSessionHandler)
			r.Post("/join/{roomId}", app.sessionHandler.JoinRoomHandler)
			r.Post("/leave", app.sessionHandler.LeaveRoomHandler)
			r.Post("/mute", app.sessionHandler.ToggleMuteHandler)
		})

		r.Route("/moderation", func(r chi.Router) {
			r.Get("/queue", app.moderationHandler.GetQueueHandler)
			r.Post("/request", app.moderationHandler.RequestToSpeakHandler)
			r.Post("/approve", app.moderationHandler.ApproveHandler)
			r.Post("/reject", app.moderationHandler.RejectHandler)
			r.Post("/block", app.moderationHandler.BlockHandler)
			r.Post("/unblock", app.moderationHandler.UnblockHandler)
		})

		r.Get("/notifications", app.sessionHandler.GetNotificationsHandler)

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	r.Handle("/metrics", promhttp.Handler())

	return otelhttp.NewHandler(r, "hearth-control")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.sugar.Infow("signal caught", "signal", s.String())

		if app.OnShutdown != nil {
			app.OnShutdown()
		}

		shutdown <- srv.Shutdown(ctx)
	}()

	app.sugar.Infow("control surface has started", "addr", srv.Addr)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.sugar.Infow("control surface has stopped", "addr", srv.Addr)

	return nil
}
