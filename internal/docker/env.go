package docker

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadEnvFile parses a dotenv-style file into KEY=VALUE pairs suitable for
// a container's environment.
//
// Supported syntax follows what the bot's own dotenv loader accepts:
//   - blank lines and lines starting with "#" are ignored
//   - KEY=VALUE assigns; surrounding single or double quotes on the value
//     are stripped
//   - a bare KEY (no "=") inherits the variable from the host environment,
//     matching `docker run --env-file`; unset host variables are skipped
//
// Keys must not be empty or contain whitespace. The file's contents are
// passed to the container at start time only — they are never copied into
// the image or written anywhere else.
func ReadEnvFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open env file %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var env []string
	scanner := bufio.NewScanner(f)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip blanks and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if key == "" || strings.ContainsAny(key, " \t") {
			return nil, fmt.Errorf("env file %q line %d: invalid variable name %q", path, lineNo, key)
		}

		if !found {
			// Bare name: pass the host's value through if it is set.
			if hostValue, ok := os.LookupEnv(key); ok {
				env = append(env, key+"="+hostValue)
			}
			continue
		}

		env = append(env, key+"="+unquote(strings.TrimSpace(value)))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read env file %q: %w", path, err)
	}

	return env, nil
}

// unquote strips one matching pair of surrounding single or double quotes.
// Values like `TOKEN="abc=123"` keep their inner content intact.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
