// Command minegem runs the Mine & Gem game engine. By default it serves the
// loopback HTTP API for a presentation client; with -script it instead plays
// sessions under control of a JavaScript strategy file.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minegem/internal/api"
	"minegem/internal/autoplay"
	"minegem/internal/config"
	"minegem/internal/controller"
	"minegem/internal/history"
	"minegem/internal/persist"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		scriptPath = flag.String("script", "", "autoplay strategy script; runs sessions headless instead of serving")
		gridSize   = flag.Int("grid", 5, "autoplay: grid size")
		mines      = flag.String("mines", "3", "autoplay: mine count")
		bet        = flag.String("bet", "10", "autoplay: bet amount")
		difficulty = flag.String("difficulty", "medium", "autoplay: difficulty (easy/medium/hard)")
		rounds     = flag.Int("sessions", 1, "autoplay: number of sessions to play")
		seed       = flag.Int64("seed", 0, "mine placement seed; 0 means time-seeded")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[minegem] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	store, err := persist.New(cfg.DataDir, nil)
	if err != nil {
		logger.Fatalf("persist: %v", err)
	}

	var hist *history.Store
	if path := cfg.HistoryPath(); path != "" {
		hist, err = history.New(path)
		if err != nil {
			logger.Printf("history disabled: %v", err)
		} else if err := hist.Migrate(); err != nil {
			logger.Printf("history disabled: %v", err)
			hist.Close()
			hist = nil
		}
	}
	if hist != nil {
		defer hist.Close()
	}

	var rng *rand.Rand
	if *seed != 0 {
		rng = rand.New(rand.NewSource(*seed))
	}

	ctrl := controller.New(store, hist, rng, nil)
	defer ctrl.Save()

	if *scriptPath != "" {
		runAutoplay(ctrl, *scriptPath, controller.SetupInput{
			GridSize:   *gridSize,
			Mines:      *mines,
			Bet:        *bet,
			Difficulty: *difficulty,
		}, *rounds, logger)
		return
	}

	server := api.NewServer(ctrl, hist)
	if err := server.Start(cfg.ListenAddr); err != nil {
		logger.Fatalf("serve: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}

func runAutoplay(ctrl *controller.Controller, scriptPath string, in controller.SetupInput, sessions int, logger *log.Logger) {
	source, err := os.ReadFile(scriptPath)
	if err != nil {
		logger.Fatalf("autoplay: %v", err)
	}

	for i := 0; i < sessions; i++ {
		runner, err := autoplay.NewRunner(ctrl, string(source), nil)
		if err != nil {
			logger.Fatalf("autoplay: %v", err)
		}
		result, err := runner.Run(in)
		if err != nil {
			logger.Fatalf("autoplay session %d: %v", i+1, err)
		}
		stats := ctrl.Stats()
		logger.Printf("session %d: %s after %d rounds, earnings %s, balance %s",
			i+1, result.Snapshot.Phase, result.Rounds,
			result.Snapshot.Earnings.StringFixed(2), stats.Balance.StringFixed(2))
		for _, entry := range result.Logs {
			logger.Printf("  script: %s", entry.Message)
		}
	}
}
