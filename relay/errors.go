package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/medicnex/ragflow-relay/deepseek"
)

// maxErrorMessage bounds the upstream message carried into an error
// fragment.
const maxErrorMessage = 200

// errorJSON renders the single error fragment the stream produces in
// place of further text: {"error": "..."}.
func errorJSON(message string) string {
	b, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		// map[string]string cannot fail to marshal; keep the fragment
		// well-formed regardless.
		return `{"error": "internal error"}`
	}
	return string(b)
}

// formatStreamError renders any error raised during streaming as the
// final error fragment. Upstream HTTP errors become "HTTP <code>:
// <message>" with the message truncated; everything else carries its
// full detail.
func formatStreamError(err error) string {
	var httpErr *deepseek.HTTPError
	if errors.As(err, &httpErr) {
		msg := httpErr.Message
		if runes := []rune(msg); len(runes) > maxErrorMessage {
			msg = string(runes[:maxErrorMessage])
		}
		return errorJSON(fmt.Sprintf("HTTP %d: %s", httpErr.StatusCode, msg))
	}
	return errorJSON(err.Error())
}
