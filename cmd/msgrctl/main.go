package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/matheus3301/msgr/internal/client"
	"github.com/matheus3301/msgr/internal/config"
	"github.com/matheus3301/msgr/internal/profile"
)

var (
	profileFlag string
	serverFlag  string
	jsonOut     bool
	timeout     time.Duration
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:           "msgrctl",
	Short:         "Scriptable access to a msgr profile",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "server URL (overrides config server_url)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "operation timeout")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output to stderr")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(chatsCmd, messagesCmd, sendCmd, startCmd, deleteCmd, searchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// withClient boots a non-exclusive client for the selected profile, runs fn
// and shuts the client down again.
func withClient(fn func(ctx context.Context, c *client.Client) error) error {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		return err
	}
	name := profile.Resolve(profileFlag, cfg)
	if err := profile.ValidateName(name); err != nil {
		return err
	}

	var c *client.Client
	app := fx.New(
		client.Module(client.Params{
			Profile:   name,
			Binary:    "msgrctl",
			ServerURL: serverFlag,
			LogStderr: debug,
			Debug:     debug,
		}),
		fx.Populate(&c),
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(ctx, c)
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
