package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pis-platform/pis/internal/client"
	"github.com/pis-platform/pis/internal/config"
	"github.com/pis-platform/pis/internal/dispatch"
	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/prefs"
	"github.com/pis-platform/pis/internal/roworder"
	"github.com/pis-platform/pis/internal/session"
)

const usage = `
Command line client for the PIS record store.

Usage:

pisctl [-f ENV_FILE_PATH] COMMAND [ARGS]

Commands:
  properties [-search TEXT] [-active true|false] [-page N] [-per-page N]
  property [-search TEXT] YARDI          show a property and its sections
  add YARDI SECTION FIELD=VALUE...       create a suite, service, utility, code or contact
  set YARDI SECTION ID FIELD=VALUE...    update a row (SECTION "property" edits the property)
  delete YARDI SECTION ID                delete a row
  sold YARDI | unsold YARDI              mark a property sold or unsold
  export [-o FILE] YARDI                 write the property as an Excel workbook
  history [-page N] [-per-page N]        show the edit history, newest first
  order YARDI SECTION [ID...]            show or save the row order of a section
  theme [light|dark]                     show or save the theme preference

FIELD:=JSON sets a raw JSON value, for example total_sq_ft:=12000.
Settings come from PIS_API_URL, PIS_ACCESS_TOKEN, PIS_PREFS_DB and
PIS_SESSION_TIMEOUT_MINUTES.
`

// app carries what every command needs
type app struct {
	cfg     *config.ClientConfig
	client  *client.Client
	session *session.Session
	prefs   *prefs.Store
	orders  *roworder.Orders
}

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	if showHelp || flag.NArg() == 0 {
		fmt.Println(usage)
		return
	}

	logging.InitLogger("pisctl")
	var err error
	if envFilename != "" {
		err = config.LoadDotEnv(envFilename)
	} else {
		err = config.LoadDotEnv()
	}
	if err != nil {
		logging.Logger.Fatalf("Failed to load environment variables: %v", err)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		logging.Logger.Fatalf("Failed to load configuration: %v", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		logging.Logger.Fatalf("Failed to start: %v", err)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		// mutation failures were already shown by Notify
		if !errors.Is(err, dispatch.ErrMutationFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		a.close()
		os.Exit(1)
	}
}

func newApp(cfg *config.ClientConfig) (*app, error) {
	store, err := prefs.Open(cfg.PrefsDB)
	if err != nil {
		return nil, err
	}

	c := client.NewFromConfig(cfg)
	s := session.New(cfg.AccessToken, session.Options{
		Timeout: time.Duration(cfg.SessionTimeoutMins) * time.Minute,
		OnWarning: func(left time.Duration) {
			logging.Logger.Warnf("Session ends in %s without activity", left.Round(time.Second))
		},
	})
	s.Attach(c)

	return &app{
		cfg:     cfg,
		client:  c,
		session: s,
		prefs:   store,
		orders:  roworder.New(store),
	}, nil
}

func (a *app) close() {
	a.session.Close()
	if err := a.prefs.Close(); err != nil {
		logging.Logger.Warnf("Failed to close preferences: %v", err)
	}
}

// Notify prints mutation failures for the user
func (a *app) Notify(n dispatch.Notice) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", n.Message, n.Err)
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	a.session.Touch()
	switch cmd {
	case "properties":
		return a.properties(ctx, args)
	case "property":
		return a.property(ctx, args)
	case "add":
		return a.add(ctx, args)
	case "set":
		return a.set(ctx, args)
	case "delete":
		return a.remove(ctx, args)
	case "sold", "unsold":
		return a.setActive(ctx, args, cmd == "unsold")
	case "export":
		return a.export(ctx, args)
	case "history":
		return a.history(ctx, args)
	case "order":
		return a.order(ctx, args)
	case "theme":
		return a.theme(ctx, args)
	default:
		return fmt.Errorf("unknown command %q, run pisctl -h for usage", cmd)
	}
}
