package cli

import (
	"fmt"
	"io"

	"github.com/HendryAvila/specwright/internal/model"
	"github.com/spf13/cobra"
)

func newSubmitCmd(rt *runtime) *cobra.Command {
	var contact model.ContactInfo
	cmd := &cobra.Command{
		Use:   "submit <session-id>",
		Short: "Hand off a specification that is ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := rt.app()
			defer cleanup()
			if err != nil {
				return err
			}
			sub, err := app.Intake.Submit(cmd.Context(), args[0], contact)
			if err != nil {
				return userError(app.Logger, err)
			}
			return render(cmd.OutOrStdout(), rt.format, sub, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Submitted specification v%d, reference %s\n", sub.SpecificationVersion, sub.ReferenceNumber)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&contact.Name, "name", "", "Contact name")
	cmd.Flags().StringVar(&contact.Email, "email", "", "Contact email")
	cmd.Flags().StringVar(&contact.Company, "company", "", "Company")
	cmd.Flags().StringVar(&contact.Phone, "phone", "", "Phone number")
	return cmd
}
