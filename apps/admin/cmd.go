package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/BlackishOne/StudySync/core/study"
	identitysvc "github.com/BlackishOne/StudySync/services/identity"
	"github.com/BlackishOne/StudySync/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	session *identitysvc.Session
	store   *study.Store
	db      *sqlx.DB // nil when no mirror database is configured
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate [COMMAND]  - run mirror schema migrations (up, down, status, ...; default: up)")
	fmt.Println("  login              - store a hosted-auth access token (prompted)")
	fmt.Println("  logout             - remove the stored session")
	fmt.Println("  export -file FILE  - write a backup snapshot to FILE")
	fmt.Println("  import -file FILE  - restore a backup snapshot from FILE")
	fmt.Println("  sync               - pull remote data and merge it into local state")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportFile := exportCmd.String("file", "", "Destination file for the backup snapshot.")

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "Backup snapshot file to restore.")

	switch args[1] {
	case "migrate":
		if cli.db == nil {
			return errors.New("no mirror database configured")
		}
		command := "up"
		var rest []string
		if len(args) > 2 {
			command = args[2]
			rest = args[3:]
		}
		return database.MigrateCommand(cli.db, command, rest...)

	case "login":
		fmt.Print("Paste access token:")
		token, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(token) == 0 {
			cli.printUsage()
			return errHelp
		}
		if err = cli.session.Login(string(token)); err != nil {
			return err
		}
		fmt.Println("Logged in.")
		return nil

	case "logout":
		if err := cli.session.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil

	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportFile == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(*exportFile)

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importData(*importFile)

	case "sync":
		ctx := context.Background()
		if err := cli.store.SyncFromCloud(ctx); err != nil {
			return err
		}
		if err := cli.store.PushAll(ctx); err != nil {
			return err
		}
		fmt.Println("Synced.")
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) export(path string) error {
	buf, err := json.MarshalIndent(cli.store.Export(), "", "  ")
	if err != nil {
		return err
	}
	if err = os.WriteFile(path, buf, 0o600); err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

func (cli *commandLine) importData(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var bundle study.ImportBundle
	if err = json.Unmarshal(raw, &bundle); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	cli.store.ImportData(bundle)
	fmt.Printf("Imported %s\n", path)
	return nil
}
