// arcanum: command-line client for pass-style password stores
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agilira/arcanum"
	"github.com/agilira/arcanum/cmd/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	config, err := arcanum.LoadConfigMultiSource(os.Getenv("ARCANUM_CONFIG"))
	if err != nil {
		return err
	}

	manager := cli.NewManager().WithContext(ctx).WithConfig(config)

	if config.Audit.Enabled {
		auditLogger, err := arcanum.NewAuditLogger(config.Audit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: audit disabled: %v\n", err)
		} else {
			defer func() { _ = auditLogger.Close() }()
			manager.WithAudit(auditLogger)
		}
	}

	// An in-process keyring replaces the gpg binary when configured.
	if keyring := os.Getenv("ARCANUM_KEYRING"); keyring != "" {
		passphrase := arcanum.Secret(os.Getenv("ARCANUM_KEYRING_PASSPHRASE"))
		d, err := arcanum.LoadKeyringFile(keyring, passphrase)
		if err != nil {
			return err
		}
		manager.WithDecrypter(d)
	}

	return manager.Run(args)
}
