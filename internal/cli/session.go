package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/HendryAvila/specwright/internal/intake"
	"github.com/HendryAvila/specwright/internal/model"
	"github.com/spf13/cobra"
)

func newSessionCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create, inspect, abandon and export sessions",
	}
	cmd.AddCommand(
		newSessionCreateCmd(rt),
		newSessionShowCmd(rt),
		newSessionAbandonCmd(rt),
		newSessionExportCmd(rt),
	)
	return cmd
}

func newSessionCreateCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Start a new session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cleanup, err := rt.app()
			defer cleanup()
			if err != nil {
				return err
			}
			sess, err := app.Sessions.Create(cmd.Context())
			if err != nil {
				return userError(app.Logger, err)
			}
			return render(cmd.OutOrStdout(), rt.format, sess, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Created session %s\n", sess.ID)
				return err
			})
		},
	}
}

func newSessionShowCmd(rt *runtime) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show stage, coverage and checkpoints of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := rt.app()
			defer cleanup()
			if err != nil {
				return err
			}
			st, err := app.Intake.Status(cmd.Context(), args[0])
			if err != nil {
				return userError(app.Logger, err)
			}
			var doc string
			if full && rt.format == formatText {
				if doc, err = app.Intake.RenderSpecification(cmd.Context(), args[0]); err != nil {
					return userError(app.Logger, err)
				}
			}
			return render(cmd.OutOrStdout(), rt.format, st, func(w io.Writer) error {
				writeStatus(w, st)
				if doc != "" {
					fmt.Fprintf(w, "\n%s", doc)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Also print the rendered specification")
	return cmd
}

func writeStatus(w io.Writer, st *intake.Status) {
	sess := st.Session
	a := st.Assessment
	fmt.Fprintf(w, "Session:   %s (%s)\n", sess.ID, sess.Status)
	fmt.Fprintf(w, "Stage:     %s\n", st.Stage)
	fmt.Fprintf(w, "Coverage:  %d%% (%s, %s)\n", a.Percentage, a.Archetype, a.Tier)
	fmt.Fprintf(w, "Version:   %d\n", sess.State.Specification.Version)
	fmt.Fprintf(w, "Messages:  %d\n", len(sess.State.ConversationHistory))
	fmt.Fprintf(w, "Ready:     %t\n", a.ReadyForHandoff)
	if len(a.MissingSections) > 0 {
		fmt.Fprintf(w, "Missing:   %s\n", strings.Join(a.MissingSections, ", "))
	}
	for _, c := range st.Active {
		fmt.Fprintf(w, "Locked:    %s (%s)\n", c.Name, c.LockedAt.Format("2006-01-02 15:04"))
	}
}

func newSessionAbandonCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon <session-id>",
		Short: "Mark a session abandoned; its content is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := rt.app()
			defer cleanup()
			if err != nil {
				return err
			}
			if err := app.Intake.Abandon(cmd.Context(), args[0]); err != nil {
				return userError(app.Logger, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Abandoned session %s\n", args[0])
			return nil
		},
	}
}

// sessionExport is everything stored for one session.
type sessionExport struct {
	Session     *model.Session        `json:"session" yaml:"session"`
	Versions    []model.Specification `json:"versions" yaml:"versions"`
	Submissions []model.Submission    `json:"submissions,omitempty" yaml:"submissions,omitempty"`
	Errors      []model.ErrorRecord   `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newSessionExportCmd(rt *runtime) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session with every specification version as YAML or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := rt.app()
			defer cleanup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			id := args[0]

			sess, err := app.Sessions.Get(ctx, id)
			if err != nil {
				return userError(app.Logger, err)
			}
			if sess == nil {
				return userError(app.Logger, apperr.NotFound("cli.export", "session %q not found", id))
			}
			doc := sessionExport{Session: sess}
			if doc.Versions, err = app.Sessions.Versions(ctx, id); err != nil {
				return userError(app.Logger, err)
			}
			if doc.Submissions, err = app.Sessions.Submissions(ctx, id); err != nil {
				return userError(app.Logger, err)
			}
			if doc.Errors, err = app.Sessions.Errors(ctx, id); err != nil {
				return userError(app.Logger, err)
			}

			format := rt.format
			if format == formatText {
				format = formatYAML
			}
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return render(w, format, doc, nil)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}
