package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thuale/todoflow/internal/credential"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the sync bearer token in the system keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store the sync token",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(os.Stderr, "Token: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading token: %w", err)
			}
			token := strings.TrimSpace(line)
			if token == "" {
				return fmt.Errorf("token must not be empty")
			}

			if err := credential.Set(credential.KeySyncToken, token); err != nil {
				return err
			}
			fmt.Println("Token stored.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the sync token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credential.Delete(credential.KeySyncToken); err != nil {
				return err
			}
			fmt.Println("Token removed.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Check whether a sync token is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := credential.Get(credential.KeySyncToken); err != nil {
				fmt.Println("No token stored.")
				return nil
			}
			fmt.Println("Token present.")
			return nil
		},
	})

	return cmd
}
