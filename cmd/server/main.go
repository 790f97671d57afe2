package main

import (
	"flag"
	"log"
	"os"

	"mower-backend/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	seed := flag.Bool("seed", false, "populate the store with random demo data before serving")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	if *seed {
		if err := app.Seed(); err != nil {
			log.Fatalf("Failed to seed store: %v", err)
		}
	}

	if err := app.Run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// loadConfig reads the config file, falling back to defaults when it does not
// exist so the server can run out of the box.
func loadConfig(path string) (*config.ServerConfig, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := config.DefaultServerConfig()
		return cfg, nil
	}

	return config.LoadServerConfig(path, workDir)
}
