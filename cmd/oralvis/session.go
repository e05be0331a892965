package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func signOutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign-out",
		Short: "Revoke the bearer token given by --token or ORALVIS_TOKEN",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd)
			if err != nil {
				return err
			}
			if err := c.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}
