package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	globalconfig "slackmcp/config"
)

// Runtime is a launcher MCP servers are commonly started with.
type Runtime struct {
	Name      string
	Installed bool
	Version   string
	Path      string
	Error     string
}

// knownRuntimes maps launcher commands to the flag that prints their version
// and a hint shown when they are missing.
var knownRuntimes = map[string]struct {
	versionArgs []string
	hint        string
}{
	"node":    {versionArgs: []string{"--version"}, hint: "install Node.js"},
	"npx":     {versionArgs: []string{"--version"}, hint: "install Node.js (npx ships with npm)"},
	"uvx":     {versionArgs: []string{"--version"}, hint: "install uv"},
	"python3": {versionArgs: []string{"--version"}, hint: "install Python 3"},
	"docker":  {versionArgs: []string{"--version"}, hint: "install Docker"},
}

var versionPattern = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)

// ResolveCommand turns a configured command into an executable path.
// Bare names are looked up on PATH; paths must point at an existing file.
func ResolveCommand(command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", fmt.Errorf("no command configured")
	}

	if strings.ContainsRune(command, filepath.Separator) {
		info, err := os.Stat(command)
		if err != nil {
			return "", fmt.Errorf("command %s: %w", command, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("command %s is a directory", command)
		}
		return command, nil
	}

	path, err := exec.LookPath(command)
	if err != nil {
		if rt, ok := knownRuntimes[command]; ok {
			return "", fmt.Errorf("%s not found on PATH (%s): %w", command, rt.hint, err)
		}
		return "", fmt.Errorf("%s not found on PATH: %w", command, err)
	}
	return path, nil
}

// CheckCommands resolves every server's command before anything is spawned
// and joins the failures.
func CheckCommands(servers []globalconfig.ServerConfig) error {
	var errs []error
	for _, server := range servers {
		if _, err := ResolveCommand(server.Command); err != nil {
			errs = append(errs, fmt.Errorf("server %s: %w", server.Name, err))
		}
	}
	return errors.Join(errs...)
}

// DetectRuntime reports whether a launcher is installed and its version.
func DetectRuntime(ctx context.Context, name string) *Runtime {
	runtime := &Runtime{Name: name}

	path, err := exec.LookPath(name)
	if err != nil {
		runtime.Error = fmt.Sprintf("%s not found", name)
		return runtime
	}
	runtime.Path = path

	args := []string{"--version"}
	if rt, ok := knownRuntimes[name]; ok {
		args = rt.versionArgs
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, args...).Output()
	if err != nil {
		runtime.Error = fmt.Sprintf("failed to get %s version", name)
		return runtime
	}

	runtime.Installed = true
	runtime.Version = strings.TrimSpace(string(output))
	if m := versionPattern.FindStringSubmatch(runtime.Version); len(m) > 1 {
		runtime.Version = m[1]
	}
	return runtime
}
