package probe

import (
	"context"
	"fmt"

	"devhost-keeper/internal/utils"
)

// Process checks that a process whose command line contains Match exists.
type Process struct {
	Match string
}

func (p *Process) Check(context.Context) error {
	if len(utils.FindProcesses(p.Match)) == 0 {
		return fmt.Errorf("no process matching %q", p.Match)
	}
	return nil
}

// Command checks that a command exits with status 0.
type Command struct {
	Argv   []string
	Runner utils.Runner
}

func (c *Command) Check(ctx context.Context) error {
	runner := c.Runner
	if runner == nil {
		runner = utils.ExecRunner{}
	}
	_, err := runner.Run(ctx, c.Argv[0], c.Argv[1:]...)
	return err
}
