package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/observo/apps/api/echo"
	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/flow"
	"github.com/trezcool/observo/core/journal"
	"github.com/trezcool/observo/core/lookup"
	"github.com/trezcool/observo/core/session"
	"github.com/trezcool/observo/core/user"
	"github.com/trezcool/observo/services/backend"
	emailsvc "github.com/trezcool/observo/services/email"
	logsvc "github.com/trezcool/observo/services/logger"
	"github.com/trezcool/observo/storage/database"
	sqlxrepos "github.com/trezcool/observo/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	schemas, err := backend.LoadSchemas()
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading payload schemas: %v", err), err)
	}
	client := backend.NewClient(conf.Backend, schemas, logger)
	submissions := sqlxrepos.NewSubmissionRepository(db)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger)

	deps := flow.Deps{
		Sink:            journal.NewRecordingSink(client, submissions, logger),
		Mailer:          mailSvc,
		Logger:          logger,
		Translator:      translator,
		FrontendBaseURL: conf.FrontendBaseURL,
	}
	store := flow.NewStore(conf.Flow.IdleTTL)
	registry := flow.NewRegistry(store, session.NewFactory(validate, deps), user.NewFactory(validate, deps))

	ctx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go store.Run(ctx, conf.Flow.SweepInterval, func(dropped int) {
		logger.Debug(fmt.Sprintf("dropped %d idle flows", dropped))
	})

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:        conf.Server.Address,
			AppName:        conf.AppName,
			SecretKey:      conf.SecretKey,
			Debug:          conf.Debug,
			TestMode:       conf.TestMode,
			DisableReqLogs: conf.Server.DisableReqLogs,
		},
		shutdown,
		&echoapi.Deps{
			Logger:     logger,
			Translator: translator,
			Registry:   registry,
			Lookups:    lookup.NewProvider(client, logger, conf.Backend.PerPage),
			Journal:    submissions,
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
