package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dtroode/dnskeeper/internal/agent"
	"github.com/dtroode/dnskeeper/internal/agent/client"
	"github.com/dtroode/dnskeeper/internal/agent/device"
	"github.com/dtroode/dnskeeper/internal/agent/state"
	"github.com/dtroode/dnskeeper/internal/clock"
	"github.com/dtroode/dnskeeper/internal/config"
	"github.com/dtroode/dnskeeper/internal/logger"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const usage = `Usage: dnskeeper-agent [flags] <command>

Commands:
  login          authorize this agent and register a provider credential
  set-key <key>  store the API key bound to this host's record
  sync           report the current public IP once
  run            sync every --interval until interrupted
  version        print build information

Flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.NewAgentConfig()
	if err != nil {
		return err
	}

	fs := pflag.NewFlagSet("dnskeeper-agent", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "dnskeeper backend base URL")
	fs.StringVar(&cfg.Issuer.URL, "issuer-url", cfg.Issuer.URL, "identity provider base URL")
	fs.StringVar(&cfg.Issuer.ClientID, "client-id", cfg.Issuer.ClientID, "device flow client id")
	fs.StringVar(&cfg.StatePath, "state", cfg.StatePath, "agent state file")
	fs.DurationVar(&cfg.SyncInterval, "interval", cfg.SyncInterval, "sync interval for run")
	fs.StringVar(&cfg.IPLookupURL, "ip-lookup-url", cfg.IPLookupURL, "public IP echo service")
	fs.IntVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "slog level (-4 debug, 0 info, 4 warn, 8 error)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	log := logger.New(cfg.LogLevel)
	clk := clock.Real()

	a := agent.New(
		device.NewClient(cfg.Issuer.URL, cfg.Issuer.ClientID, cfg.Issuer.Scope, cfg.Issuer.Timeout, clk, log),
		client.NewBackend(cfg.APIURL, cfg.APITimeout),
		client.NewIPLookup(cfg.IPLookupURL, cfg.IPLookupTimeout),
		state.NewStore(cfg.StatePath),
		clk,
		os.Stdin,
		os.Stdout,
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	switch cmd := fs.Arg(0); cmd {
	case "login":
		return a.Login(ctx)
	case "set-key":
		if fs.NArg() != 2 {
			return errors.New("usage: dnskeeper-agent set-key <key>")
		}
		return a.SetKey(fs.Arg(1))
	case "sync":
		res, err := a.Sync(ctx)
		if err != nil {
			return err
		}
		fmt.Println(res.Message)
		return nil
	case "run":
		return a.Run(ctx, cfg.SyncInterval)
	case "version":
		logAppVersion()
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func logAppVersion() {
	tmpl := `Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
