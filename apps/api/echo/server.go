package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/activity"
	"github.com/trezcool/madrasa/core/behavior"
	"github.com/trezcool/madrasa/core/exam"
	"github.com/trezcool/madrasa/core/schedule"
	metricsvc "github.com/trezcool/madrasa/services/metrics"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Translator ut.Translator
		Metrics    *metricsvc.Recorder
		Activities *activity.Store
		Behavior   *behavior.Store
		Exams      *exam.Store
		Schedules  *schedule.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	v1.POST("/token-refresh", refreshToken(conf), jwt)

	registerPanelAPI(v1, jwt, &panelApi[activity.Activity, *activity.Activity]{
		store:   s.deps.Activities,
		alt:     activity.AltMode,
		metrics: s.deps.Metrics,
	})
	registerPanelAPI(v1, jwt, &panelApi[behavior.Report, *behavior.Report]{
		store:   s.deps.Behavior,
		alt:     behavior.AltMode,
		metrics: s.deps.Metrics,
	})
	registerPanelAPI(v1, jwt, &panelApi[exam.Exam, *exam.Exam]{
		store:   s.deps.Exams,
		alt:     exam.AltMode,
		metrics: s.deps.Metrics,
	})
	registerScheduleAPI(v1, jwt, s.deps.Schedules, conf, s.deps.Metrics)
}

// Start listens on the configured address; failures are reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
