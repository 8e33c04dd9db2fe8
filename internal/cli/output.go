package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/HendryAvila/specwright/internal/apperr"
	"gopkg.in/yaml.v3"
)

// render writes v in the selected format. text is used for the text format.
func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatText, "":
		return text(w)
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

// userError logs err and replaces a classified failure with its user-facing
// wording.
func userError(logger *slog.Logger, err error) error {
	if err == nil || apperr.KindOf(err) == apperr.KindUnknown {
		return err
	}
	logger.Debug("command failed", "kind", apperr.KindOf(err), "error", err)
	return errors.New(apperr.UserMessage(err))
}
