package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/relay-server/internal/config"
	"github.com/muurk/relay-server/internal/ui"
)

var (
	secretsSSID string
	initForce   bool
)

func init() {
	secretsCmd.Flags().StringVar(&secretsSSID, "ssid", "", "WLAN network name")
	_ = secretsCmd.MarkFlagRequired("ssid")

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
}

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Store WLAN credentials for the board",
	Long: `Write the WLAN credentials file named by "secrets" in the config.

The password is read from the terminal without echo, or from the first
line of stdin when it is not a terminal. The file is created with mode
0600. Without this file the board runs as an open access point.`,
	Example: `  relay-server secrets --ssid HomeNetwork
  echo "$PASSWORD" | relay-server secrets --ssid HomeNetwork`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		path := cfg.SecretsPath(configPath)
		if path == "" {
			return errors.New("config has no secrets path")
		}

		password, err := readPassword(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		if err := config.SaveSecrets(path, &config.Secrets{SSID: secretsSSID, Password: password}); err != nil {
			return err
		}
		ui.NewPrinter(os.Stdout).PrintSuccess("Credentials saved",
			ui.Field{Key: "SSID", Value: secretsSSID},
			ui.Field{Key: "File", Value: path},
		)
		return nil
	},
}

// readPassword prompts on a terminal, otherwise reads one line from in.
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		_, _ = fmt.Fprint(prompt, "WLAN password: ")
		b, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
		cfg := config.Default()
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		ui.NewPrinter(os.Stdout).PrintSuccess("Configuration written",
			ui.Field{Key: "File", Value: configPath},
			ui.Field{Key: "Listen", Value: cfg.Listen},
			ui.Field{Key: "Driver", Value: cfg.Pins.Driver},
		)
		return nil
	},
}
