package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newLinkCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Issue and restore resume tokens",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "issue <session-id>",
			Short: "Issue a new resume token, invalidating the previous one",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, cleanup, err := rt.app()
				defer cleanup()
				if err != nil {
					return err
				}
				token, err := app.Links.Generate(cmd.Context(), args[0])
				if err != nil {
					return userError(app.Logger, err)
				}
				out := map[string]string{"session_id": args[0], "token": token}
				return render(cmd.OutOrStdout(), rt.format, out, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, token)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "restore <token>",
			Short: "Find the session a resume token belongs to",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, cleanup, err := rt.app()
				defer cleanup()
				if err != nil {
					return err
				}
				sess, err := app.Links.Restore(cmd.Context(), args[0])
				if err != nil {
					return userError(app.Logger, err)
				}
				return render(cmd.OutOrStdout(), rt.format, sess, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s (%s, %d messages, specification v%d)\n",
						sess.ID, sess.Status, len(sess.State.ConversationHistory), sess.State.Specification.Version)
					return err
				})
			},
		},
	)
	return cmd
}
