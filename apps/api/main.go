package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	echoapi "github.com/trezcool/schoolhealth/apps/api/echo"
	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/blog"
	"github.com/trezcool/schoolhealth/core/disease"
	"github.com/trezcool/schoolhealth/core/drugrequest"
	"github.com/trezcool/schoolhealth/core/inventory"
	"github.com/trezcool/schoolhealth/core/prefs"
	"github.com/trezcool/schoolhealth/core/user"
	"github.com/trezcool/schoolhealth/core/vaccination"
	emailsvc "github.com/trezcool/schoolhealth/services/email"
	logsvc "github.com/trezcool/schoolhealth/services/logger"
	"github.com/trezcool/schoolhealth/services/notify"
	"github.com/trezcool/schoolhealth/services/restapi"
	"github.com/trezcool/schoolhealth/services/session"
	"github.com/trezcool/schoolhealth/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.New(os.Stdout, "API", conf)
	dbLogger := logsvc.New(os.Stdout, "DB", conf)

	// set up the preference store
	store, closer, err := database.NewPrefsStore(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up preference store: %v", err), err)
	}
	defer func() {
		if err = closer.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := restapi.NewMetrics(registry)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up metrics: %v", err), err)
	}

	// set up services
	notifier := notify.Context{Fallback: notify.Log{Logger: logger}}
	client := restapi.NewClient(conf.API, session.Context{}, notifier, logger, restapi.WithMetrics(metrics))

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger, os.Stdout)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("api").Set(conf.API.BaseURL)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		&echoapi.Options{
			Conf:         conf,
			Logger:       logger,
			AccessLogger: logger.Zerolog(),
			Validate:     validate,
			Translator:   translator,
			Client:       client,
			Notifier:     notifier,
			Metrics:      registry,

			UserSvc:        user.NewService(client, mailSvc, prefs.Scoped(store)),
			DrugRequestSvc: drugrequest.NewService(client, notifier),
			InventorySvc:   inventory.NewService(client),
			VaccinationSvc: vaccination.NewService(client, notifier),
			DiseaseSvc:     disease.NewService(client),
			BlogSvc:        blog.NewService(client),
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
