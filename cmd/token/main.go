// Command token mints a bearer token for the write endpoints of the API.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"portfolio_tracker/internal/config"
	jwtmw "portfolio_tracker/internal/platform/jwt"
)

func main() {
	if err := newTokenCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newTokenCmd() *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:           "token SUBJECT",
		Short:         "Print a signed API token for SUBJECT",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("load .env: %w", err)
				}
				cfg, err := config.Load(config.Path())
				if err != nil {
					return err
				}
				secret = cfg.Server.JWTSecret
			}
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}

			token, err := jwtmw.NewGenerator(secret, ttl).GenerateToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (defaults to JWT_SECRET)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
