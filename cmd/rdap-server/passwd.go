package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pcarana/rdap-server/pkg/auth"
)

func newPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <password>",
		Short: "Print a bcrypt hash for the users file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
