// Command assetctl runs maintenance tasks against the asset database
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/simaogato/assetflow-backend/internal/app"
	"github.com/simaogato/assetflow-backend/internal/config"
	"github.com/simaogato/assetflow-backend/internal/logging"
)

var configPath = flag.String("config", "config.toml", "path to the TOML configuration")

var commands = []subcommands.Command{
	&migrateCmd{},
	&updatePricesCmd{},
	&reconcileCmd{},
	&correctCmd{},
	&seriesCmd{},
	&chartCmd{},
	&importCmd{},
	&checkCmd{},
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// openApp loads the configuration and builds the services
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format))
}
