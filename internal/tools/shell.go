// Package tools holds the local executors the action stage dispatches to:
// guarded shell execution, web search/fetch, and workspace file writes.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// DefaultDenyPatterns match dangerous shell commands.
var DefaultDenyPatterns = []string{
	`\brm\s+-[rf]{1,2}\b`,
	`\b(format|mkfs|diskpart)\b`,
	`\bdd\s+if=`,
	`>\s*/dev/sd`,
	`\b(shutdown|reboot|poweroff)\b`,
	`:\(\)\s*\{.*\};\s*:`,
}

// ShellRunner executes shell commands with safety guards.
type ShellRunner struct {
	Timeout      time.Duration
	WorkingDir   string
	DenyPatterns []string
}

// NewShellRunner creates a ShellRunner with default safety patterns.
func NewShellRunner(workingDir string) *ShellRunner {
	return &ShellRunner{
		Timeout:      60 * time.Second,
		WorkingDir:   workingDir,
		DenyPatterns: DefaultDenyPatterns,
	}
}

// Run executes command under sh -c. Blocked or failed commands report
// through the output string; the error return is reserved for validation.
func (r *ShellRunner) Run(ctx context.Context, command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", fmt.Errorf("bash requires params.command")
	}

	lower := strings.ToLower(command)
	for _, pattern := range r.DenyPatterns {
		if matched, _ := regexp.MatchString(pattern, lower); matched {
			return "", fmt.Errorf("command blocked by safety guard (dangerous pattern detected)")
		}
	}

	timeout := r.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if r.WorkingDir != "" {
		cmd.Dir = r.WorkingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	var parts []string
	if stdout.Len() > 0 {
		parts = append(parts, stdout.String())
	}
	if s := strings.TrimSpace(stderr.String()); s != "" {
		parts = append(parts, "STDERR:\n"+s)
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Sprintf("Error: Command timed out after %v", timeout), nil
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			parts = append(parts, fmt.Sprintf("Exit code: %d", exitErr.ExitCode()))
		}
	}

	result := "(no output)"
	if len(parts) > 0 {
		result = strings.Join(parts, "\n")
	}

	const maxLen = 10000
	if len(result) > maxLen {
		result = result[:maxLen] + fmt.Sprintf("\n... (truncated, %d more chars)", len(result)-maxLen)
	}
	return result, nil
}
