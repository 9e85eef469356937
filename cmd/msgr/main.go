package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"

	"github.com/matheus3301/msgr/internal/client"
	"github.com/matheus3301/msgr/internal/config"
	"github.com/matheus3301/msgr/internal/profile"
	"github.com/matheus3301/msgr/internal/tui"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	serverFlag := flag.String("server", "", "server URL (overrides config server_url)")
	debugFlag := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	name := profile.Resolve(*profileFlag, cfg)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	server := cfg.ServerURL
	if *serverFlag != "" {
		server = *serverFlag
	}

	var c *client.Client
	app := fx.New(
		client.Module(client.Params{
			Profile:   name,
			Binary:    "msgr",
			ServerURL: *serverFlag,
			Exclusive: true,
			Debug:     *debugFlag,
		}),
		fx.Populate(&c),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	runErr := tui.NewApp(c, tui.Options{Profile: name, Server: server}).Run()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error stopping: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}
