package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogurtsov/gorodok/internal/config"
	"github.com/ogurtsov/gorodok/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the database",
	}
	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or update the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	return cmd
}

func newDBResetCmd() *cobra.Command {
	var configPath string
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop all tables and recreate them empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to reset without --yes")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			conn, err := db.Connect(cfg.Storage)
			if err != nil {
				return err
			}
			if err := db.Reset(conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database reset")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the destructive reset")
	return cmd
}
