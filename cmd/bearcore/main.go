// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Binary bearcore runs the BearCore-V validation suite against the simulated
// hart, and assembles or executes standalone firmware images.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/ezrec/bearcore/config"
	"github.com/ezrec/bearcore/translate"
)

var (
	configPath = flag.String("config", "", "TOML machine configuration to use.")
	verbose    = flag.Bool("v", false, "Verbose mode: debug logging and instruction tracing.")
	lang       = flag.String("lang", "", "Language for diagnostics, overriding the host locale.")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(Run), "")
	subcommands.Register(new(Menu), "")
	subcommands.Register(new(Asm), "")
	subcommands.Register(new(Exec), "")

	flag.Parse()

	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if *lang != "" {
		tag, err := language.Parse(*lang)
		if err != nil {
			log.Fatalf("lang: %v", err)
		}
		translate.SetLanguage(tag)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.Run.Verbose = cfg.Run.Verbose || *verbose

	os.Exit(int(subcommands.Execute(context.Background(), cfg)))
}

func loadConfig() (cfg *config.Config, err error) {
	if *configPath == "" {
		cfg = config.Default()
		return
	}

	return config.Load(*configPath)
}
