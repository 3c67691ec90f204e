package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/drugrequest"
	"github.com/trezcool/schoolhealth/core/user"
	emailsvc "github.com/trezcool/schoolhealth/services/email"
	logsvc "github.com/trezcool/schoolhealth/services/logger"
	"github.com/trezcool/schoolhealth/services/notify"
	"github.com/trezcool/schoolhealth/services/restapi"
	"github.com/trezcool/schoolhealth/services/session"
	"github.com/trezcool/schoolhealth/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.New(os.Stderr, "CLI", conf)

	// set up the preference store
	store, closer, err := database.NewPrefsStore(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up preference store: %v", err), err)
	}

	sess := session.NewStore(store)
	notifier := notify.NewTerminal(os.Stdout)
	client := restapi.NewClient(conf.API, sess, notifier, logger)
	mailSvc := emailsvc.NewConsoleService(conf, logger, os.Stdout)

	// start CLI
	cli := commandLine{
		conf:    conf,
		sess:    sess,
		usrSvc:  user.NewService(client, mailSvc, store),
		drugSvc: drugrequest.NewService(client, notifier),
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	if cErr := closer.Close(); cErr != nil {
		logger.Error("closing preference store", cErr)
	}
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", core.MessageOf(err))
		}
		os.Exit(1)
	}
}
