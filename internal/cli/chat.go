package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/HendryAvila/specwright/internal/intake"
	"github.com/HendryAvila/specwright/internal/server"
	"github.com/spf13/cobra"
)

func newChatCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [session-id]",
		Short: "Hold the intake conversation in the terminal",
		Long: "chat reads one message per line and prints the assistant's reply. " +
			"Without a session id a new session is started. Type /quit to leave, " +
			"/status to see coverage.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := rt.app()
			defer cleanup()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var id string
			if len(args) == 1 {
				id = args[0]
			} else {
				sess, err := app.Sessions.Create(cmd.Context())
				if err != nil {
					return userError(app.Logger, err)
				}
				id = sess.ID
				fmt.Fprintf(out, "Started session %s\nTell me about your idea.\n", id)
			}
			return chatLoop(cmd, app, id, cmd.InOrStdin(), out)
		},
	}
}

func chatLoop(cmd *cobra.Command, app *server.App, id string, in io.Reader, out io.Writer) error {
	ctx := cmd.Context()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/status":
			st, err := app.Intake.Status(ctx, id)
			if err != nil {
				fmt.Fprintln(out, apperr.UserMessage(err))
				continue
			}
			writeStatus(out, st)
			continue
		}

		stream := &replyStream{out: out}
		fmt.Fprintln(out)
		turn, err := app.Intake.HandleMessage(ctx, id, line, stream)
		if err != nil {
			if msg, unsaved := intake.UnsavedMessage(err); unsaved {
				app.Offline.Park(id, msg)
				fmt.Fprintln(out, "Saved offline. Run `specwright offline sync "+id+"` once storage is back.")
				continue
			}
			switch apperr.KindOf(err) {
			case apperr.KindPersistence, apperr.KindValidation:
				fmt.Fprintln(out, apperr.UserMessage(err))
			default:
				return userError(app.Logger, err)
			}
			continue
		}

		stream.Flush()
		if !stream.wrote {
			fmt.Fprint(out, turn.Reply)
		}
		fmt.Fprint(out, "\n\n")
		if turn.Stage != turn.PreviousStage {
			fmt.Fprintf(out, "[stage: %s → %s, coverage %d%%]\n", turn.PreviousStage, turn.Stage, turn.Assessment.Percentage)
		}
		for _, c := range turn.NewCheckpoints {
			fmt.Fprintf(out, "[checkpoint locked: %s]\n", c.Name)
		}
		if turn.Assessment.ReadyForHandoff {
			fmt.Fprintf(out, "[ready for handoff: specwright submit %s --name ... --email ...]\n", id)
		}
	}
}

const jsonFence, fence = "```json", "```"

// replyStream prints a reply while it is generated and hides the fenced json
// extraction blocks in it. Text that could be the start of a fence is held
// back until the next chunk decides it.
type replyStream struct {
	out     io.Writer
	pending string
	inFence bool
	wrote   bool
}

func (r *replyStream) Write(chunk string) {
	r.pending += chunk
	for {
		if r.inFence {
			end := strings.Index(r.pending, fence)
			if end < 0 {
				r.pending = r.pending[len(r.pending)-heldPrefix(r.pending, fence):]
				return
			}
			r.pending = r.pending[end+len(fence):]
			r.inFence = false
			continue
		}
		start := strings.Index(r.pending, jsonFence)
		if start < 0 {
			keep := heldPrefix(r.pending, jsonFence)
			r.emit(r.pending[:len(r.pending)-keep])
			r.pending = r.pending[len(r.pending)-keep:]
			return
		}
		r.emit(r.pending[:start])
		r.pending = r.pending[start+len(jsonFence):]
		r.inFence = true
	}
}

// Reset is called when the assistant switches provider mid-reply. Printed
// text cannot be taken back, so the switch is announced instead.
func (r *replyStream) Reset() {
	if r.wrote {
		fmt.Fprint(r.out, "\n[connection lost, retrying]\n")
	}
	r.pending, r.inFence, r.wrote = "", false, false
}

// Flush prints text held back at the end of the reply.
func (r *replyStream) Flush() {
	if !r.inFence {
		r.emit(r.pending)
	}
	r.pending = ""
}

func (r *replyStream) emit(s string) {
	if s == "" {
		return
	}
	if !r.wrote {
		s = strings.TrimLeft(s, " \n")
		if s == "" {
			return
		}
	}
	fmt.Fprint(r.out, s)
	r.wrote = true
}

// heldPrefix returns the length of the longest suffix of s that is a proper
// prefix of marker.
func heldPrefix(s, marker string) int {
	for n := len(marker) - 1; n > 0; n-- {
		if strings.HasSuffix(s, marker[:n]) {
			return n
		}
	}
	return 0
}
