package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ogurtsov/gorodok/internal/bot"
	"github.com/ogurtsov/gorodok/internal/chat/telegram"
	"github.com/ogurtsov/gorodok/internal/config"
	"github.com/ogurtsov/gorodok/internal/dashboard"
	"github.com/ogurtsov/gorodok/internal/db"
	"github.com/ogurtsov/gorodok/internal/store"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		Long:  "Connects to Telegram, listens for user events, and serves the optional dashboard.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	conn, err := db.Connect(cfg.Storage)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(conn); err != nil {
		return err
	}
	st, err := store.New(conn)
	if err != nil {
		return err
	}

	adapter, err := telegram.New(telegram.AdapterOpts{Token: cfg.Telegram.Token})
	if err != nil {
		return err
	}

	daemon, err := bot.NewDaemon(bot.DaemonOpts{
		Store:   st,
		Config:  cfg,
		Adapter: adapter,
		Out:     cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "Received %s, shutting down...\n", sig)
		cancel()
	}()

	if cfg.Dashboard.Enabled {
		go func() {
			err := dashboard.Start(ctx, dashboard.StartOpts{
				Store: st,
				Port:  cfg.Dashboard.Port,
				Out:   cmd.OutOrStdout(),
			})
			if err != nil {
				log.Printf("dashboard: %v", err)
			}
		}()
	}

	return daemon.Run(ctx)
}
