package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mower-backend/pkg/config"
	"mower-backend/pkg/logger"
	"mower-backend/pkg/simulator"
)

func main() {
	configPath := flag.String("config", "configs/simulator.yaml", "path to config file")
	machineID := flag.String("machine-id", "", "machine id, overrides the config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *machineID != "" {
		cfg.MachineID = *machineID
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logging := logger.NewLogger(cfg.Runtime.Debug)
	simLog := logging.GetLogger("simulator")

	machine := simulator.New(cfg, simLog)
	machine.Start()
	defer machine.Stop()

	router := simulator.NewRouter(machine, simLog)
	addr := fmt.Sprintf("%s:%d", cfg.Listen.Host, cfg.Listen.Port)

	errCh := make(chan error, 1)
	go func() {
		simLog.Info().
			Str("address", addr).
			Str("machine_id", cfg.MachineID).
			Str("backend", cfg.Backend.Address).
			Msg("Starting machine simulator")
		errCh <- router.Run(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Simulator failed: %v", err)
	case sig := <-sigCh:
		simLog.Info().Str("signal", sig.String()).Msg("Shutting down")
	}
}

func loadConfig(path string) (*config.SimulatorConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.DefaultSimulatorConfig(), nil
	}
	return config.LoadSimulatorConfig(path)
}
