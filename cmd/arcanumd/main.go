// arcanumd: keeps a password store index warm and reports its changes
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agilira/arcanum"
)

func main() {
	flags := arcanum.NewFlagConfig("arcanumd").
		SetDescription("Watch a password store and log new credentials").
		SetVersion("1.0.0")
	flags.ParseOrExit()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		log.Printf("arcanumd: %v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, flags *arcanum.FlagConfig) error {
	config, err := flags.Config()
	if err != nil {
		return err
	}
	config.ErrorHandler = func(err error, path string) {
		log.Printf("warning: %s: %v", path, err)
	}

	lock, err := arcanum.AcquireInstanceLock(flags.LockFile())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	session, err := arcanum.Watch(ctx, *config)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	log.Printf("watching %s (suffix %s, lock %s)", session.Root(), session.Suffix(), lock.Path())

	var statsTick <-chan time.Time
	if interval := flags.StatsInterval(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		statsTick = ticker.C
	}

	known := 0
	ready := session.Ready()
	for {
		select {
		case <-ctx.Done():
			log.Printf("shutting down")
			return nil

		case <-ready:
			known = session.Index().Len()
			log.Printf("initial scan complete: %d credentials", known)
			ready = nil

		case err := <-session.Err():
			return fmt.Errorf("session failed: %w", err)

		case sig, ok := <-session.Signals():
			if !ok {
				return nil
			}
			n := session.Index().Len()
			log.Printf("%s: index now holds %d credentials (%+d)", sig, n, n-known)
			known = n

		case <-statsTick:
			stats := session.Stats()
			log.Printf("stats: entries=%d indexed=%d removed=%d signals=%d dropped=%d",
				stats.Entries, stats.Indexed, stats.Removed, stats.SignalsSent, stats.SignalsDropped)
		}
	}
}
