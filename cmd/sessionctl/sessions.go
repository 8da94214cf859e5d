package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Badrul886/riverside/internal/config"
	"github.com/Badrul886/riverside/internal/session/domain"
)

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and revoke sessions",
	}
	cmd.AddCommand(newSessionsListCommand(), newSessionsRevokeAllCommand(), newSessionsPurgeCommand())
	return cmd
}

func newSessionsListCommand() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			list, err := e.sessions.ListForUser(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return writeSessions(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newSessionsRevokeAllCommand() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "revoke-all",
		Short: "Revoke every live session of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			mgr, err := e.manager()
			if err != nil {
				return err
			}
			n, err := mgr.InvalidateAll(cmd.Context(), userID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "revoked %d session(s)\n", n)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newSessionsPurgeCommand() *cobra.Command {
	var before string
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete revoked sessions that expired before a cutoff",
		Long:  "Delete revoked sessions that expired before --before, given as an age (\"30d\", \"72h\") or an RFC 3339 timestamp.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cutoff, err := parseCutoff(before, time.Now())
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()
			n, err := e.sessions.DeleteExpired(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d revoked session(s) expired before %s\n", n, cutoff.Format(time.RFC3339))
			return err
		},
	}
	cmd.Flags().StringVar(&before, "before", "30d", "age or RFC 3339 timestamp")
	return cmd
}

// parseCutoff reads s as an RFC 3339 time or as an age relative to now.
func parseCutoff(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := config.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --before %q: want an age like 30d or an RFC 3339 time", s)
	}
	if d <= 0 {
		return time.Time{}, fmt.Errorf("invalid --before %q: age must be positive", s)
	}
	return now.Add(-d).UTC(), nil
}

func writeSessions(w io.Writer, list []domain.SessionSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFAMILY\tCREATED\tEXPIRES\tSTATE\tIP\tUSER AGENT")
	for _, s := range list {
		state := "active"
		if s.Revoked {
			state = "revoked"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.TokenFamily,
			s.CreatedAt.Format(time.RFC3339), s.ExpiresAt.Format(time.RFC3339), state, s.IPAddress, s.UserAgent)
	}
	return tw.Flush()
}
