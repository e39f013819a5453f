package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// passwordFields lists, per tool, the secret arguments that are prompted for
// when missing from the command line.
var passwordFields = map[string][]string{
	"register":        {"password"},
	"login":           {"password"},
	"change_password": {"old_password", "new_password"},
	"reset_password":  {"new_password"},
}

// GetPassword prints prompt to w and reads a password from the user's
// terminal without echo. A newline is printed after the read to keep the UI
// tidy.
func GetPassword(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// ParseArgs turns key=value pairs into tool arguments. Values that start
// with '[' or '{' are decoded as JSON so bulk tools can take lists; all
// other values are passed as strings and converted by the server.
func ParseArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not in key=value form", p)
		}

		if strings.HasPrefix(value, "[") || strings.HasPrefix(value, "{") {
			var v any
			dec := json.NewDecoder(bytes.NewReader([]byte(value)))
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("argument %s: invalid JSON: %w", key, err)
			}
			args[key] = v
			continue
		}
		args[key] = value
	}
	return args, nil
}

// promptSecrets asks for the secret arguments of tool that were not given.
func promptSecrets(w io.Writer, tool string, args map[string]any) error {
	for _, field := range passwordFields[tool] {
		if v, ok := args[field].(string); ok && v != "" {
			continue
		}
		pw, err := GetPassword(w, "Enter "+strings.ReplaceAll(field, "_", " "))
		if err != nil {
			return err
		}
		args[field] = pw
	}
	return nil
}
