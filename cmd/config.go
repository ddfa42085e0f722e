package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teemow/calsheet/internal/config"
	"github.com/teemow/calsheet/internal/logging"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func configPath() string {
	if globals.configPath != "" {
		return globals.configPath
	}
	return config.DefaultPath()
}

func newConfigInitCmd() *cobra.Command {
	var (
		force              bool
		googleClientID     string
		googleClientSecret string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the current settings",
		Long: `Write the effective configuration (defaults, environment and flags) to the
configuration file. An existing file is only replaced with --force.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to replace it", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to check config file: %w", err)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if googleClientID != "" {
				cfg.Google.ClientID = googleClientID
			}
			if googleClientSecret != "" {
				cfg.Google.ClientSecret = googleClientSecret
			}

			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing configuration file")
	cmd.Flags().StringVar(&googleClientID, "google-client-id", "", "Google OAuth Client ID to store")
	cmd.Flags().StringVar(&googleClientSecret, "google-client-secret", "", "Google OAuth Client Secret to store")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Google.ClientSecret != "" {
				cfg.Google.ClientSecret = logging.SanitizeToken(cfg.Google.ClientSecret)
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", configPath())
			_, err = out.Write(data)
			return err
		},
	}
}
