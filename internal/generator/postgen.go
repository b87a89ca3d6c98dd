package generator

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/mattn/go-shellwords"
)

// PostResult is the outcome of the post-generation command.
type PostResult struct {
	Command  string `yaml:"command" json:"command"`
	ExitCode int    `yaml:"exitCode" json:"exitCode"`
	Error    string `yaml:"error,omitempty" json:"error,omitempty"`
}

// postGenerate runs cmd inside outputDir. Its failure is recorded and
// logged; it never fails the generation run.
func (g *Generator) postGenerate(ctx context.Context, cmd, outputDir string) *PostResult {
	res := &PostResult{Command: cmd}
	args, err := parseCommand(cmd)
	if err != nil {
		res.ExitCode = -1
		res.Error = err.Error()
		g.Log.Warn("post-generation command invalid", "command", cmd, "error", err)
		return res
	}

	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Dir = outputDir
	c.Stdout = g.Stdout
	c.Stderr = g.Stderr
	if err := c.Run(); err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		res.Error = err.Error()
		g.Log.Warn("post-generation command failed", "command", cmd, "exitCode", res.ExitCode, "error", err)
		return res
	}
	g.Log.Info("post-generation command finished", "command", cmd)
	return res
}

func parseCommand(raw string) ([]string, error) {
	args, err := shellwords.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse post-generation command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("post-generation command is empty")
	}
	return args, nil
}
