package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pcarana/rdap-server/pkg/config"
	"github.com/pcarana/rdap-server/pkg/policy"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect privacy policy tables",
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Load every policy table and report invalid entries",
		Args:  cobra.NoArgs,
		RunE:  runPolicyCheck,
	}
	check.Flags().String("override-dir", "", "Directory of operator .properties overrides (overrides policy.override_dir)")

	cmd.AddCommand(check)
	return cmd
}

func runPolicyCheck(cmd *cobra.Command, _ []string) error {
	dir, err := cmd.Flags().GetString("override-dir")
	if err != nil {
		return fmt.Errorf("failed to get override-dir flag: %w", err)
	}
	if dir == "" {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		dir = cfg.Policy.OverrideDir
	}

	tables, err := policy.NewLoader(dir).Load()
	if err != nil {
		out := cmd.ErrOrStderr()
		var cfgErr *policy.ConfigurationError
		for _, e := range unwrapJoined(err) {
			if errors.As(e, &cfgErr) {
				for _, entry := range cfgErr.Invalid {
					fmt.Fprintf(out, "%s.properties: %s = %q is not a visibility level\n", cfgErr.ObjectType, entry.Key, entry.Value)
				}
				if cfgErr.Err != nil {
					fmt.Fprintf(out, "%s.properties: %v\n", cfgErr.ObjectType, cfgErr.Err)
				}
			}
		}
		return fmt.Errorf("policy check failed: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OBJECT TYPE\tFIELDS")
	for _, objectType := range tables.Types() {
		t, _ := tables.Table(objectType)
		fmt.Fprintf(w, "%s\t%d\n", objectType, t.Len())
	}
	return w.Flush()
}

// unwrapJoined flattens an errors.Join result.
func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
