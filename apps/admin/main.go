package main

import (
	"log"
	"os"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/services/backend"
	logsvc "github.com/trezcool/observo/services/logger"
	"github.com/trezcool/observo/storage/database"
	sqlxrepos "github.com/trezcool/observo/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	schemas, err := backend.LoadSchemas()
	if err != nil {
		logger.Fatal("loading payload schemas", err)
	}

	// start CLI
	cli := commandLine{
		db:     db,
		repo:   sqlxrepos.NewSubmissionRepository(db),
		source: backend.NewClient(conf.Backend, schemas, logger),
		conf:   conf,
		logger: logger,
		out:    os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		db.Close()
		os.Exit(1)
	}
}
