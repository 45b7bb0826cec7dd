package main

import (
	"github.com/spf13/cobra"

	"neurema-cms/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		store, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			log.Error("migrate failed", "error", err)
			return err
		}
		store.Close()
		return nil
	},
}
