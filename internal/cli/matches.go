package cli

import (
	"context"
	"fmt"

	"github.com/existflow/sockmatch/internal/model"
	"github.com/spf13/cobra"
)

func newMatchesCmd(a *app) *cobra.Command {
	matchesCmd := &cobra.Command{
		Use:     "matches",
		Aliases: []string{"match", "pairs"},
		Short:   "Manage confirmed pairs",
	}

	createCmd := &cobra.Command{
		Use:   "create [sock-id] [partner-id]",
		Short: "Confirm two socks as a pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s1, err := parseID(args[0])
			if err != nil {
				return err
			}
			s2, err := parseID(args[1])
			if err != nil {
				return err
			}

			m, err := a.pairing.Confirm(ctx, s1, s2)
			if err != nil {
				return a.fail(ctx, err)
			}
			a.printf("✅ Match #%d: sock #%d + sock #%d\n", m.ID, m.Sock1ID, m.Sock2ID)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List confirmed pairs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			matches, err := a.matches.List(ctx)
			if err != nil {
				return a.fail(ctx, err)
			}
			if len(matches) == 0 {
				a.println("No matches yet. Confirm one with: sockmatch matches create <sock> <partner>")
				return nil
			}

			a.printf("%-6s %-16s %s\n", "ID", "SOCKS", "MATCHED")
			for _, m := range matches {
				pair := fmt.Sprintf("#%d + #%d", m.Sock1ID, m.Sock2ID)
				a.printf("%-6d %-16s %s\n", m.ID, pair, m.MatchedAt.Local().Format("2006-01-02"))
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [match-id]",
		Short: "Show one pair with both socks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := a.matches.Get(ctx, id)
			if err != nil {
				return a.fail(ctx, err)
			}
			a.printMatch(m)
			return nil
		},
	}

	var decouple, force bool
	deleteCmd := &cobra.Command{
		Use:     "delete [match-id]",
		Aliases: []string{"rm"},
		Short:   "Remove a pair",
		Long: `Remove a pair. By default both socks are deleted with it
(they found each other, so they leave the drawer together).
With --decouple the socks are kept and become singles again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMatchDelete(cmd.Context(), args[0], decouple, force)
		},
	}
	deleteCmd.Flags().BoolVar(&decouple, "decouple", false, "Keep both socks as singles")
	deleteCmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")

	matchesCmd.AddCommand(createCmd, listCmd, showCmd, deleteCmd)
	return matchesCmd
}

func (a *app) printMatch(m *model.Match) {
	a.printf("Match #%d (matched %s)\n", m.ID, m.MatchedAt.Local().Format("2006-01-02 15:04"))
	for _, s := range []*model.Sock{m.Sock1, m.Sock2} {
		if s == nil {
			continue
		}
		desc := s.Description
		if desc == "" {
			desc = "-"
		}
		a.printf("  sock #%d  %s\n", s.ID, desc)
	}
}

func (a *app) runMatchDelete(ctx context.Context, arg string, decouple, force bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	m, err := a.matches.Get(ctx, id)
	if err != nil {
		return a.fail(ctx, err)
	}

	question := fmt.Sprintf("Delete match #%d and permanently delete socks #%d and #%d?", m.ID, m.Sock1ID, m.Sock2ID)
	if decouple {
		question = fmt.Sprintf("Split match #%d? Socks #%d and #%d become singles again.", m.ID, m.Sock1ID, m.Sock2ID)
	}
	if !a.confirm(force, question) {
		a.println("Cancelled.")
		return nil
	}

	if err := a.pairing.Unpair(ctx, id, decouple); err != nil {
		return a.fail(ctx, err)
	}
	if decouple {
		a.printf("✅ Split match #%d\n", id)
	} else {
		a.printf("🗑️  Deleted match #%d and its socks\n", id)
	}
	return nil
}
