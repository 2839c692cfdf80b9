// Command hrconsole serves the HR administration API.
package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spf13/pflag"

	"github.com/milan604/hr-console/pkg/config"
	"github.com/milan604/hr-console/pkg/logger"
	"github.com/milan604/hr-console/pkg/version"
)

func main() {
	flags := pflag.NewFlagSet("hrconsole", pflag.ExitOnError)
	configPath := flags.String("config", "config/hrconsole.yaml", "path to the YAML config file")
	flags.String("log.level", "", "log level override (debug, info, warn, error)")
	flags.String("service.port", "", "listen port override")
	showVersion := flags.Bool("version", false, "print build information and exit")
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		v := version.Get()
		fmt.Printf("hrconsole %s (commit %s, built %s, %s)\n", v.Version, v.Commit, v.Date, v.Go)
		return
	}

	var current atomic.Pointer[app]
	cfg := config.New(
		config.WithDefaults(config.Defaults()),
		config.WithFile(*configPath),
		config.WithDotEnv(""),
		config.WithEnv(config.EnvPrefix),
		config.WithPFlags(onlyChanged(flags)),
		config.WithSensitiveKeys("database.password", "redis.password", "auth.rsa_public_key"),
		config.WithWatch(func() {
			if a := current.Load(); a != nil {
				a.reload()
			}
		}),
	)

	log := logger.FromOptions(cfg.GetString)
	defer func() { _ = log.Sync() }()
	log.InfoF("hrconsole %s starting", version.Get().Version)
	log.DebugF("effective config: %v", cfg.MaskedSettings())

	ctx := context.Background()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.ErrorF("startup failed: %v", err)
		os.Exit(1)
	}
	current.Store(a)
	if err := a.run(ctx); err != nil {
		log.ErrorF("server exited: %v", err)
		os.Exit(1)
	}
}

// onlyChanged keeps flags the user set explicitly so empty flag defaults do
// not shadow the config file.
func onlyChanged(fs *pflag.FlagSet) *pflag.FlagSet {
	out := pflag.NewFlagSet(fs.Name(), pflag.ContinueOnError)
	fs.Visit(func(f *pflag.Flag) {
		if f.Name != "config" && f.Name != "version" {
			out.AddFlag(f)
		}
	})
	return out
}
