package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"text/template"
)

/**
 * Render a text/template string
 * @param {string} text - Template text, plain strings are returned unchanged
 * @param {interface{}} data - Template data
 * @returns {string} Rendered string
 * @returns {error} Parse or execute error
 */
func RenderTemplate(text string, data interface{}) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New("value").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", text, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", text, err)
	}
	return buf.String(), nil
}

/**
 * Render a command line whose elements are templates
 * @param {[]string} argv - Command and arguments
 * @param {interface{}} data - Template data
 * @returns {[]string} Rendered command line
 * @returns {error} First template error
 */
func GetCommandLine(argv []string, data interface{}) ([]string, error) {
	rendered := make([]string, 0, len(argv))
	for _, arg := range argv {
		s, err := RenderTemplate(arg, data)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, strings.TrimSpace(s))
	}
	return rendered, nil
}

// Runner runs a command to completion and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

/**
 * ExecRunner runs commands through os/exec
 * @property {bool} sudo - Prefix every command with "sudo -n"
 */
type ExecRunner struct {
	Sudo bool
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.Sudo {
		args = append([]string{"-n", name}, args...)
		name = "sudo"
	}
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w%s", name, strings.Join(args, " "), err, lastLine(out))
	}
	return out, nil
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 || lines[len(lines)-1] == "" {
		return ""
	}
	return ": " + lines[len(lines)-1]
}
