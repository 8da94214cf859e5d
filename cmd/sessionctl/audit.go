package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newAuditCommand() *cobra.Command {
	var (
		userID string
		limit  int32
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show a user's most recent audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			entries, err := e.audit.ListByUser(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tACTION\tRESOURCE\tIP\tMETADATA")
			for _, a := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.CreatedAt.Format(time.RFC3339), a.Action, a.Resource, a.IP, a.Metadata)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().Int32Var(&limit, "limit", 50, "maximum entries")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
