package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chronicle/internal/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the write API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		j := auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), TokenTTL: cfg.Auth.TokenTTL, Issuer: cfg.Auth.Issuer}
		if !j.Enabled() {
			return errors.New("auth.jwt_secret is not set")
		}
		tok, exp, err := j.Sign(tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "token subject, recorded as changedBy")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "lifetime; defaults to auth.token_ttl")
}
