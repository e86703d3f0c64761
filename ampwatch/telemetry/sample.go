package telemetry

import (
	"encoding/json"
	"strings"
)

// RawSample maps a semantic key to the text currently displayed for it.
// Keys missing from the page are absent, never empty-valued placeholders.
type RawSample map[string]string

var unescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`)

// Unwrap strips one layer of string quoting from a script result. Some
// surfaces return the JSON produced by a script as a quoted JS string; the
// result is left untouched unless it is itself a quoted string.
func Unwrap(raw string) string {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return raw
	}
	return unescaper.Replace(raw[1 : len(raw)-1])
}

// DecodeResult unwraps a script result and decodes the JSON inside into v.
// An empty or whitespace-only result leaves v untouched.
func DecodeResult(raw string, v any) error {
	cleaned := strings.TrimSpace(Unwrap(raw))
	if cleaned == "" || cleaned == "null" {
		return nil
	}
	return json.Unmarshal([]byte(cleaned), v)
}
