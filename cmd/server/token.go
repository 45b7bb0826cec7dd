package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"neurema-cms/internal/config"
	"neurema-cms/internal/middleware"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API token signed with JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := middleware.NewJWTAuth(config.LoadJWTSecret()).GenerateToken(tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject, e.g. the client name")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")
	tokenCmd.MarkFlagRequired("subject")
}
