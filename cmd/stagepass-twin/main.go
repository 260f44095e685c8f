// stagepass-twin is a local emulation of the venue loyalty backend. It
// serves the code redemption, reward, and ticket endpoints the kiosk talks
// to, plus an admin control plane for tests and demos.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/karaobingo/stagepass/internal/config"
	"github.com/karaobingo/stagepass/internal/kit"
	"github.com/karaobingo/stagepass/internal/twin"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to stagepass.yaml")
		port       = flag.Int("port", 0, "HTTP listen port (overrides config)")
		latency    = flag.Duration("latency", 0, "base simulated latency")
		seedFile   = flag.String("seed-file", "", "path to JSON fixture for initial state")
		verbose    = flag.Bool("verbose", false, "enable request/response logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *port != 0 {
		cfg.TwinPort = *port
	}
	if *verbose {
		cfg.Verbose = true
	}

	server := kit.NewServer(&kit.Config{
		Port:    cfg.TwinPort,
		Latency: *latency,
		Verbose: cfg.Verbose,
		Name:    "stagepass-twin",
	})

	memStore := twin.NewMemoryStore()
	if *seedFile != "" {
		data, err := os.ReadFile(*seedFile)
		if err != nil {
			log.Fatalf("failed to read seed file: %v", err)
		}
		if err := memStore.LoadState(data); err != nil {
			log.Fatalf("failed to load seed data: %v", err)
		}
		server.Logger.Info("loaded seed data", "file", *seedFile)
	} else {
		memStore.SeedDefaults()
	}

	twin.NewHandler(memStore, []byte(cfg.TwinSecret)).Routes(server.Router)

	server.Logger.Info("stagepass-twin ready", "port", cfg.TwinPort)

	if err := server.Serve(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
