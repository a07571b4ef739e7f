package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/mdedge/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write a config file interactively",
	Long: `Prompt for the main settings and write them as a YAML config file.

Current values (defaults, existing config files, environment) are offered
as the defaults of each prompt.`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

var errCancelled = errors.New("cancelled")

func init() {
	configureCmd.Flags().StringP("output", "o", "config.yaml", "file to write")

	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("output")

	err = promptConfig(cfg, out)
	if errors.Is(err, errCancelled) {
		fmt.Println("Cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	if err := config.Save(out, cfg); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", out)
	return nil
}

func promptConfig(cfg *config.Config, out string) error {
	if _, err := os.Stat(out); err == nil {
		if err := confirm(fmt.Sprintf("%s already exists. Overwrite it", out)); err != nil {
			return err
		}
	}

	var err error

	if cfg.Storage.Backend, err = choose("Storage backend", []string{"filesystem", "s3"}, cfg.Storage.Backend); err != nil {
		return err
	}
	if cfg.Storage.Bucket, err = ask("Bucket name", cfg.Storage.Bucket, required); err != nil {
		return err
	}

	switch cfg.Storage.Backend {
	case "filesystem":
		if err := promptOrigin(cfg); err != nil {
			return err
		}
	case "s3":
		if err := promptS3(cfg); err != nil {
			return err
		}
	}

	cfg.Log.Format, err = choose("Log format", []string{"text", "json"}, cfg.Log.Format)
	return err
}

func promptOrigin(cfg *config.Config) error {
	var err error

	if cfg.Storage.Path, err = ask("Storage directory", cfg.Storage.Path, required); err != nil {
		return err
	}
	if cfg.Server.Mode, err = choose("Server mode", []string{"store", "static", "spa"}, cfg.Server.Mode); err != nil {
		return err
	}

	port, err := ask("Port", strconv.Itoa(cfg.Server.Port), validPort)
	if err != nil {
		return err
	}
	cfg.Server.Port, _ = strconv.Atoi(port)

	if cfg.Database.Type, err = choose("Metadata database", []string{"sqlite", "postgres"}, cfg.Database.Type); err != nil {
		return err
	}
	cfg.Database.DSN, err = ask("Database DSN", cfg.Database.DSN, required)
	return err
}

func promptS3(cfg *config.Config) error {
	var err error

	if cfg.Storage.S3.Region, err = ask("Region", cfg.Storage.S3.Region, required); err != nil {
		return err
	}
	if cfg.Storage.S3.Endpoint, err = ask("Endpoint URL (empty for AWS)", cfg.Storage.S3.Endpoint, optionalURL); err != nil {
		return err
	}
	if cfg.Storage.S3.Endpoint != "" {
		if cfg.Storage.S3.UsePathStyle, err = yes("Use path-style addressing"); err != nil {
			return err
		}
	}
	if cfg.Storage.S3.AccessKeyID, err = ask("Access key ID (empty for the default chain)", cfg.Storage.S3.AccessKeyID, nil); err != nil {
		return err
	}
	if cfg.Storage.S3.AccessKeyID != "" {
		secret := promptui.Prompt{Label: "Secret access key", Mask: '*'}
		if cfg.Storage.S3.SecretAccessKey, err = secret.Run(); err != nil {
			return promptError(err)
		}
	}
	return nil
}

func ask(label, def string, validate promptui.ValidateFunc) (string, error) {
	p := promptui.Prompt{Label: label, Default: def, Validate: validate, AllowEdit: true}
	v, err := p.Run()
	if err != nil {
		return "", promptError(err)
	}
	return v, nil
}

func choose(label string, items []string, current string) (string, error) {
	cursor := 0
	for i, item := range items {
		if item == current {
			cursor = i
		}
	}

	s := promptui.Select{Label: label, Items: items, CursorPos: cursor}
	_, v, err := s.Run()
	if err != nil {
		return "", promptError(err)
	}
	return v, nil
}

// confirm returns nil when the user answers yes.
func confirm(label string) error {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := p.Run(); err != nil {
		return promptError(err)
	}
	return nil
}

// yes asks a yes/no question. Only an interrupt is an error.
func yes(label string) (bool, error) {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := p.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	default:
		return false, promptError(err)
	}
}

func promptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
		return errCancelled
	}
	return err
}

func required(input string) error {
	if input == "" {
		return errors.New("value is required")
	}
	return nil
}

func validPort(input string) error {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > 65535 {
		return errors.New("port must be 1-65535")
	}
	return nil
}

func optionalURL(input string) error {
	if input == "" {
		return nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	return nil
}
