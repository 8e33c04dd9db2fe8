package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newOfflineCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offline",
		Short: "Inspect and sync messages kept while storage was unavailable",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "queue <session-id>",
			Short: "List queued messages",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, cleanup, err := rt.app()
				defer cleanup()
				if err != nil {
					return err
				}
				msgs := app.Offline.Messages(args[0])
				return render(cmd.OutOrStdout(), rt.format, msgs, func(w io.Writer) error {
					if len(msgs) == 0 {
						_, err := fmt.Fprintln(w, "No queued messages.")
						return err
					}
					for _, m := range msgs {
						fmt.Fprintf(w, "%s  %s\n", m.Timestamp.Format("2006-01-02 15:04:05"), m.Content)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "sync <session-id>",
			Short: "Append queued messages to the session in order",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, cleanup, err := rt.app()
				defer cleanup()
				if err != nil {
					return err
				}
				n, err := app.Offline.Sync(cmd.Context(), args[0], app.Sessions)
				if err != nil {
					return userError(app.Logger, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d message(s)\n", n)
				return nil
			},
		},
	)
	return cmd
}
