package cli

import (
	"github.com/spf13/cobra"
)

func newTutorialCmd(a *app) *cobra.Command {
	tutorialCmd := &cobra.Command{
		Use:   "tutorial",
		Short: "Show or change whether the tutorial was completed",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the tutorial was completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			done, err := a.session.TutorialCompleted(cmd.Context())
			if err != nil {
				return err
			}
			if done {
				a.println("Tutorial completed.")
			} else {
				a.println("Tutorial not completed.")
			}
			return nil
		},
	}

	doneCmd := &cobra.Command{
		Use:   "done",
		Short: "Mark the tutorial as completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.CompleteTutorial(cmd.Context()); err != nil {
				return err
			}
			a.println("✅ Tutorial marked as completed.")
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Show the tutorial again next time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.ResetTutorial(cmd.Context()); err != nil {
				return err
			}
			a.println("✅ Tutorial reset.")
			return nil
		},
	}

	tutorialCmd.AddCommand(statusCmd, doneCmd, resetCmd)
	return tutorialCmd
}
