// Package opener hands URLs and files to external programs: the configured
// viewer for `open` and the editor for `edit`.
package opener

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Opener launches a configured command.
type Opener struct {
	command []string

	// start launches cmd; tests replace it.
	start func(cmd *exec.Cmd) error
}

// New creates an opener for command, which may carry arguments,
// e.g. "open -a Skim".
func New(command string) *Opener {
	return &Opener{
		command: strings.Fields(command),
		start:   func(cmd *exec.Cmd) error { return cmd.Start() },
	}
}

// Command returns the command that opens target.
func (o *Opener) Command(ctx context.Context, target string) (*exec.Cmd, error) {
	if len(o.command) == 0 {
		return nil, fmt.Errorf("no command configured")
	}
	if target == "" {
		return nil, fmt.Errorf("nothing to open")
	}
	args := append(append([]string{}, o.command[1:]...), target)
	return exec.CommandContext(ctx, o.command[0], args...), nil
}

// Open starts the command on target without waiting for it.
func (o *Opener) Open(target string) error {
	cmd, err := o.Command(context.Background(), target)
	if err != nil {
		return err
	}
	if err := o.start(cmd); err != nil {
		return fmt.Errorf("running %s: %w", o.command[0], err)
	}
	return nil
}

// Edit runs the command on path attached to the terminal and waits for it
// to exit.
func (o *Opener) Edit(ctx context.Context, path string) error {
	return o.run(ctx, path, os.Stdin, os.Stdout, os.Stderr)
}

func (o *Opener) run(ctx context.Context, path string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd, err := o.Command(ctx, path)
	if err != nil {
		return err
	}
	cmd.Stdin, cmd.Stdout, cmd.Stderr = stdin, stdout, stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", o.command[0], err)
	}
	return nil
}
