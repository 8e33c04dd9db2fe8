package cli

import (
	"fmt"

	"github.com/HendryAvila/specwright/internal/server"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "specwright v%s\n", server.Version)
			return err
		},
	}
}
