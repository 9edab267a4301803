package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/trezcool/madrasa/apps/api/echo"
	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/activity"
	"github.com/trezcool/madrasa/core/behavior"
	"github.com/trezcool/madrasa/core/exam"
	"github.com/trezcool/madrasa/core/schedule"
	logsvc "github.com/trezcool/madrasa/services/logger"
	metricsvc "github.com/trezcool/madrasa/services/metrics"
	"github.com/trezcool/madrasa/storage/blob"
	"github.com/trezcool/madrasa/storage/seed"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up logger
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	// set up blob storage
	blobs, err := blob.Open(context.Background(), conf.Blob)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob storage: %v", err), err)
	}

	// set up stores & services
	validate, translator := core.NewValidator()
	activities := activity.NewStore(validate)
	reports := behavior.NewStore(validate)
	exams := exam.NewStore(validate)
	schedules := schedule.NewService(schedule.NewStore(validate), blobs, conf, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if conf.SeedFile != "" {
		loadSeed(conf.SeedFile, seed.Stores{
			Activities: activities,
			Behavior:   reports,
			Exams:      exams,
			Schedules:  schedules.Store(),
		}, logger)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("blobDriver").Set(string(blobs.Driver()))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Translator: translator,
			Metrics:    metricsvc.NewRecorder("madrasa"),
			Activities: activities,
			Behavior:   reports,
			Exams:      exams,
			Schedules:  schedules,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func loadSeed(path string, stores seed.Stores, logger core.Logger) {
	f, err := seed.ReadFile(path)
	if err != nil {
		logger.Fatal(fmt.Sprintf("reading seed file: %v", err), err)
	}
	report := seed.Load(f, stores)
	for _, r := range report.Rejected {
		logger.Warn(fmt.Sprintf("seed: %s[%d] rejected: %v", r.Panel, r.Index, r.Err))
	}
	logger.Info(fmt.Sprintf("seed: loaded %v", report.Loaded))
}
