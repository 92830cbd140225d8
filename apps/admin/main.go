package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/BlackishOne/StudySync/core"
	"github.com/BlackishOne/StudySync/core/study"
	identitysvc "github.com/BlackishOne/StudySync/services/identity"
	logsvc "github.com/BlackishOne/StudySync/services/logger"
	"github.com/BlackishOne/StudySync/storage/database"
	dummysync "github.com/BlackishOne/StudySync/storage/database/dummy"
	sqlxsync "github.com/BlackishOne/StudySync/storage/database/sqlx"
	statefile "github.com/BlackishOne/StudySync/storage/state"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	errAndDie(os.MkdirAll(conf.Storage.DataDir, 0o700))

	session := identitysvc.NewSession(conf.Storage.SessionPath())

	// set up the remote mirror if one is configured
	var db *sqlx.DB
	var syncer study.Syncer = dummysync.New(session)
	if conf.Database.Enabled() {
		var err error
		db, err = database.Open(conf)
		errAndDie(err)
		defer db.Close()
		syncer = sqlxsync.NewSyncer(db, session)
	}

	store, err := study.NewStore(statefile.New(conf.Storage.StatePath()), syncer, logsvc.NewConsoleLogger(logger), conf)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		session: session,
		store:   store,
		db:      db,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
