package main

import (
	"flag"

	"go.uber.org/fx"

	"github.com/matheus3301/msgr/internal/devserver"
)

func main() {
	envFlag := flag.String("env", "", "env file to load (default .env when present)")
	addrFlag := flag.String("addr", "", "listen address (overrides MSGRD_ADDR)")
	dbFlag := flag.String("db", "", "database path (overrides MSGRD_DB)")
	flag.Parse()

	app := fx.New(
		devserver.Module(devserver.Params{
			EnvFile: *envFlag,
			Addr:    *addrFlag,
			DBPath:  *dbFlag,
			Stderr:  true,
		}),
	)

	app.Run()
}
