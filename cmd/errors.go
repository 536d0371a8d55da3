package cmd

import (
	"errors"
	"fmt"
	"io"

	apperrors "github.com/kyleking/rockset-org-metadata/internal/errors"
	"github.com/kyleking/rockset-org-metadata/internal/logging"
)

// printError writes err and any suggestions attached to it
func printError(w io.Writer, err error) {
	logging.WithField("type", string(apperrors.GetType(err))).WithError(err).Debug("Command failed")

	message := err.Error()

	var structErr *apperrors.Error
	if errors.As(err, &structErr) {
		message = structErr.Message
		if structErr.Cause != nil {
			message += ": " + structErr.Cause.Error()
		}
	}

	_, _ = fmt.Fprintf(w, "Error: %s\n", message)

	for _, suggestion := range apperrors.GetSuggestions(err) {
		_, _ = fmt.Fprintf(w, "  - %s\n", suggestion)
	}
}
