// Package command builds and runs external programs, always capturing both
// output streams and the exit status.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Command is an executable name plus its argument list.
type Command struct {
	Name string
	Args []string
}

// New starts a command line for name.
func New(name string) *Command {
	return &Command{Name: name}
}

// Arg appends one argument.
func (c *Command) Arg(a string) *Command {
	c.Args = append(c.Args, a)
	return c
}

// Flag appends "--name=value" when value is non-empty.
func (c *Command) Flag(name, value string) *Command {
	if value == "" {
		return c
	}
	return c.Arg(fmt.Sprintf("--%s=%s", name, value))
}

// String renders the command line for logs.
func (c *Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Result is what a finished process left behind.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Success reports a zero exit status.
func (r Result) Success() bool { return r.ExitCode == 0 }

// Runner executes commands. Tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, c *Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes c and waits for it. A non-zero exit is reported through
// Result.ExitCode with a nil error; err is set only when the process could
// not be started or was killed by ctx.
func (ExecRunner) Run(ctx context.Context, c *Command) (Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	res := Result{Stdout: out.Bytes(), Stderr: errb.Bytes()}
	dur := time.Since(start)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		res.ExitCode = exitErr.ExitCode()
		err = nil
	default:
		res.ExitCode = -1
		log.Debug().Str("cmd", c.String()).Dur("duration", dur).Err(err).Msg("exec failed")
		return res, fmt.Errorf("run %s: %w", c.Name, err)
	}

	log.Debug().
		Str("cmd", c.String()).
		Dur("duration", dur).
		Int("exit", res.ExitCode).
		Int("stdout_bytes", len(res.Stdout)).
		Str("stderr", Truncate(string(res.Stderr), 8<<10)).
		Msg("exec done")
	return res, nil
}

// Truncate caps s at max bytes.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
