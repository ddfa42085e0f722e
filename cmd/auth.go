package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/calsheet/internal/config"
	"github.com/teemow/calsheet/internal/google"
)

func newAuthCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Calendar",
		Long: `Run the OAuth consent flow for the configured account and store the token.

The OAuth client comes from google.client_id and google.client_secret in the
configuration or the GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars.
Tokens are refreshed automatically once stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
				return fmt.Errorf("google client credentials are missing: set google.client_id and google.client_secret or %s and %s",
					config.EnvClientID, config.EnvClientSecret)
			}

			oauth := newOAuth(cfg)
			if oauth.HasTokenForAccount(cfg.Account) && !force {
				fmt.Fprintf(cmd.OutOrStdout(), "Account %q is already authorized. Use --force to log in again.\n", cfg.Account)
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultCommandTimeout)
			defer cancel()

			auth := google.NewInteractiveAuthenticator(oauth, cfg.Account, cmd.InOrStdin(), cmd.OutOrStdout())
			return auth.Login(ctx)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Log in again even when a token is stored")

	return cmd
}
