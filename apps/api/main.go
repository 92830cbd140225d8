package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/BlackishOne/StudySync/apps/api/echo"
	"github.com/BlackishOne/StudySync/core"
	"github.com/BlackishOne/StudySync/core/study"
	identitysvc "github.com/BlackishOne/StudySync/services/identity"
	logsvc "github.com/BlackishOne/StudySync/services/logger"
	"github.com/BlackishOne/StudySync/storage/database"
	dummysync "github.com/BlackishOne/StudySync/storage/database/dummy"
	sqlxsync "github.com/BlackishOne/StudySync/storage/database/sqlx"
	statefile "github.com/BlackishOne/StudySync/storage/state"
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

	if err := os.MkdirAll(conf.Storage.DataDir, 0o700); err != nil {
		logger.Fatal(fmt.Sprintf("creating data dir: %v", err), err)
	}
	identity := identitysvc.NewSession(conf.Storage.SessionPath())

	// set up the remote mirror; without a configured database the app runs
	// fully local
	var syncer study.Syncer = dummysync.New(identity)
	if conf.Database.Enabled() {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				logger.Error("closing database", err)
			}
		}()
		syncer = sqlxsync.NewSyncer(db, identity)
	}

	store, err := study.NewStore(statefile.New(conf.Storage.StatePath()), syncer, logger, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up store: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store.Start(ctx)

	// catch up with the mirror on boot; local state stays authoritative on failure
	if err = store.SyncFromCloud(ctx); err != nil {
		logger.Warn(fmt.Sprintf("initial sync failed: %v", err), err)
	}

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

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Store:      store,
			Identity:   identity,
			Validate:   validate,
			Translator: translator,
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
		shutCtx, shutCancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer shutCancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(shutCtx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}

		// stop the sync worker and let it drain pending writes
		cancel()
		store.Wait()
	}
}

func setUpDB(conf *core.Config) (db *sqlx.DB, err error) {
	if err = database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	if db, err = database.Open(conf); err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
