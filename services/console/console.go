//go:build !rp2040 && !rp2350 && !stm32

// Package console is an interactive prompt that sends command lines to the
// firmware and prints its responses. Lines starting with ':' are console
// meta-commands.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

const maxRepeat = 1000

type Console struct {
	target Target
	out    io.Writer
}

func New(target Target, out io.Writer) *Console {
	return &Console{target: target, out: out}
}

// Handle runs one input line. It reports false once the user asked to quit.
func (c *Console) Handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}
	if !strings.HasPrefix(input, ":") {
		c.exec(ctx, input)
		return true
	}

	args, err := shlex.Split(input[1:])
	if err != nil || len(args) == 0 {
		fmt.Fprintf(c.out, "bad meta-command: %q\n", input)
		return true
	}
	switch args[0] {
	case "help", "h":
		c.printHelp()
	case "quit", "q", "exit":
		return false
	case "repeat":
		c.repeat(ctx, args[1:])
	case "sleep":
		c.sleep(ctx, args[1:])
	default:
		fmt.Fprintf(c.out, "unknown meta-command :%s (try :help)\n", args[0])
	}
	return true
}

func (c *Console) exec(ctx context.Context, line string) bool {
	resp, err := c.target.Exec(ctx, line)
	if err != nil {
		fmt.Fprintf(c.out, "! %s: %v\n", line, err)
		return false
	}
	fmt.Fprintf(c.out, "%s -> %s\n", line, resp)
	return true
}

// :repeat N <line...>
func (c *Console) repeat(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "usage: :repeat N <command>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > maxRepeat {
		fmt.Fprintf(c.out, "repeat count must be 1..%d\n", maxRepeat)
		return
	}
	line := strings.Join(args[1:], " ")
	for i := 0; i < n && ctx.Err() == nil; i++ {
		if !c.exec(ctx, line) {
			return
		}
	}
}

// :sleep <duration>
func (c *Console) sleep(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "usage: :sleep <duration>")
		return
	}
	d, err := time.ParseDuration(args[0])
	if err != nil || d < 0 {
		fmt.Fprintf(c.out, "bad duration %q\n", args[0])
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `Firmware commands:
  LedStart            start blinking
  LedStop             stop blinking, LED off
  Led<1..1000>ms      set blink period in milliseconds
  Led<1..10>s         set blink period in seconds

Console:
  :repeat N <cmd>     send a command N times
  :sleep <duration>   pause, e.g. :sleep 500ms
  :help               this text
  :quit               leave
`)
}

// Run reads lines from a readline prompt until :quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, prompt string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
	})
	if err != nil {
		return fmt.Errorf("console: %w", err)
	}
	defer rl.Close()

	c.out = rl.Stdout()
	c.printHelp()
	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !c.Handle(ctx, line) {
			return nil
		}
	}
	return ctx.Err()
}
