// Command zwave-console is an interactive shell over the Z-Wave manager.
//
// It loads the same configuration as the daemon, starts the configured
// engine in-process and lets an operator browse homes, nodes and values,
// write values and run controller commands. Nothing is published to MQTT.
//
// Usage:
//
//	zwave-console [flags]
//
// Flags:
//
//	-config string    Configuration file path (default "configs/config.yaml")
//	-network string   Network fixture, overriding zwave.network_file
//	-no-drivers       Do not add the configured drivers at startup
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw/simulator"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Configuration file path")
	networkFile := flag.String("network", "", "Network fixture, overriding zwave.network_file")
	noDrivers := flag.Bool("no-drivers", false, "Do not add the configured drivers at startup")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *networkFile, !*noDrivers); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, networkFile string, addDrivers bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if networkFile != "" {
		cfg.ZWave.NetworkFile = networkFile
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "zwave> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	// Logs share the terminal with the prompt.
	log := logging.NewWithWriter(cfg.Logging, "console", rl.Stderr())

	network, err := simulator.LoadNetwork(cfg.ZWave.NetworkFile)
	if err != nil {
		return fmt.Errorf("loading z-wave network: %w", err)
	}
	engine, err := simulator.New(simulator.Options{
		Network:         network,
		PollInterval:    cfg.ZWave.GetPollInterval(),
		PollBetweenEach: cfg.ZWave.PollBetweenEach,
		Logger:          log.Component("simulator"),
	})
	if err != nil {
		return fmt.Errorf("creating z-wave engine: %w", err)
	}
	manager, err := ozw.Create(ozw.Options{Engine: engine, Logger: log.Component("ozw")})
	if err != nil {
		//nolint:errcheck // The engine never started a driver
		engine.Close()
		return fmt.Errorf("creating z-wave manager: %w", err)
	}
	defer manager.Destroy() //nolint:errcheck // Nothing left to report at exit

	console, err := NewConsole(manager, rl.Stdout(), log)
	if err != nil {
		return err
	}
	sub, err := manager.Subscribe(ozw.SubscribeOptions{Buffer: 256})
	if err != nil {
		return err
	}
	go console.Watch(sub)

	if addDrivers {
		for _, d := range cfg.ZWave.Drivers {
			iface := d.Interface
			if iface == "" {
				iface = "serial"
			}
			console.Handle("add-driver " + d.Path + " " + iface)
		}
	}
	console.Handle("help")

	// Readline blocks, so cancellation is noticed between lines.
	go func() {
		<-ctx.Done()
		rl.Close() //nolint:errcheck // Unblocks Readline
	}()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil
		}
		if !console.Handle(line) {
			return nil
		}
	}
}
