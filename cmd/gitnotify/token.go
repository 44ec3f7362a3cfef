package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/gitnotify/internal/adapter/driven/credential"
	"github.com/ericfisherdev/gitnotify/internal/config"
)

func newTokenCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the GitHub token stored in the system keyring",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set",
			Short: "Read a token from stdin and store it in the keyring",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ks, err := openKeyringSource(cfg())
				if err != nil {
					return err
				}

				scanner := bufio.NewScanner(cmd.InOrStdin())
				if !scanner.Scan() {
					if err := scanner.Err(); err != nil {
						return fmt.Errorf("reading token: %w", err)
					}
					return errors.New("no token on stdin")
				}

				if err := ks.Store(strings.TrimSpace(scanner.Text())); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "token stored")
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the token from the keyring",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ks, err := openKeyringSource(cfg())
				if err != nil {
					return err
				}
				if err := ks.Delete(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "token removed")
				return nil
			},
		},
	)

	return cmd
}

func openKeyringSource(c *config.Config) (*credential.KeyringSource, error) {
	if !c.UseKeyring {
		return nil, errors.New("keyring disabled by GITNOTIFY_KEYRING")
	}
	ring, err := credential.OpenKeyring()
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return credential.NewKeyringSource(ring), nil
}
