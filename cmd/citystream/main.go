// Command citystream runs a single account's city stream and logs each
// normalized event. It doubles as a reference consumer for the sdk.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/openclawcity/citystream/internal/config"
	"github.com/openclawcity/citystream/pkg/logger"
	"github.com/openclawcity/citystream/pkg/types"
	"github.com/openclawcity/citystream/sdk"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "citystream: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	log := logger.WithComponent("main")

	hooks := types.Hooks{
		OnEvent: func(env *types.Envelope) error {
			log.Info().
				Str("id", env.ID).
				Str("sender", env.Sender.Name).
				Str("channel", env.Channel).
				Msg(env.Text)
			return nil
		},
		OnWelcome: func(info types.WelcomeInfo) {
			log.Info().
				Str("location", info.Location).
				Bool("paused", info.Paused).
				Int("backlog", info.BacklogSize).
				Msg("connected to city")
		},
		OnError: func(info types.ErrorInfo) {
			log.Warn().Str("reason", info.Reason).Str("message", info.Message).Msg("server error")
		},
		OnStateChange: func(state types.State) {
			log.Debug().Str("state", string(state)).Msg("state changed")
		},
	}

	registry := sdk.NewRegistry()
	svc := sdk.New(cfg, hooks)
	registry.Register(svc)
	defer registry.Remove(svc)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Wire the abort signal to Stop exactly once.
	var stopOnce sync.Once
	go func() {
		<-ctx.Done()
		stopOnce.Do(svc.Stop)
	}()

	if err := svc.Connect(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	<-svc.Done()
	return nil
}
