package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ogurtsov/gorodok/internal/chat"
	"github.com/ogurtsov/gorodok/internal/chat/telegram"
	"github.com/ogurtsov/gorodok/internal/config"
	"github.com/ogurtsov/gorodok/internal/db"
	"github.com/ogurtsov/gorodok/internal/dispatch"
	"github.com/ogurtsov/gorodok/internal/store"
)

func newBroadcastCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "broadcast <text>",
		Short: "Send a text broadcast to every known user",
		Long:  "One-shot broadcast from the command line, without the bot running. Goes through the same paced, rate-limit-aware dispatcher.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBroadcast(cmd, configPath, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	return cmd
}

func runBroadcast(cmd *cobra.Command, configPath, text string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	conn, err := db.Connect(cfg.Storage)
	if err != nil {
		return err
	}
	st, err := store.New(conn)
	if err != nil {
		return err
	}
	ids, err := st.AllUserIDs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No known users, nothing to send")
		return nil
	}

	adapter, err := telegram.New(telegram.AdapterOpts{Token: cfg.Telegram.Token})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := adapter.Connect(ctx); err != nil {
		return err
	}
	defer adapter.Close()

	dispatcher, err := dispatch.New(dispatch.Opts{
		Adapter:       adapter,
		SendInterval:  cfg.SendInterval(),
		PhotoGroupMax: cfg.Delivery.PhotoGroupMax,
	})
	if err != nil {
		return err
	}

	report := dispatcher.Deliver(ctx, ids, chat.Outbound{Text: text})
	fmt.Fprintf(cmd.OutOrStdout(), "Broadcast done: sent=%d blocked=%d failed=%d\n",
		report.Sent, report.Blocked, report.Failed)
	return nil
}
