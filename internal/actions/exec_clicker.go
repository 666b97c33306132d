package actions

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ExecClicker runs an external input tool for each click, for example
// ["xdotool", "mousemove", "{x}", "{y}", "click", "1"].
type ExecClicker struct {
	command []string
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewExecClicker validates the command template.
func NewExecClicker(command []string) (*ExecClicker, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, fmt.Errorf("click command is required")
	}
	return &ExecClicker{command: command, run: runCommand}, nil
}

// Click runs the command with {x} and {y} substituted.
func (c *ExecClicker) Click(ctx context.Context, x, y int) error {
	replacer := strings.NewReplacer("{x}", strconv.Itoa(x), "{y}", strconv.Itoa(y))
	args := make([]string, 0, len(c.command)-1)
	for _, arg := range c.command[1:] {
		args = append(args, replacer.Replace(arg))
	}
	out, err := c.run(ctx, c.command[0], args...)
	if err != nil {
		return fmt.Errorf("%s: %w: %s", c.command[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
