package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// commandList collects repeated -e flags.
type commandList []string

func (c *commandList) String() string {
	return strings.Join(*c, "; ")
}

func (c *commandList) Set(v string) error {
	*c = append(*c, v)
	return nil
}

type interactiveCmd struct {
	*root
	fs    *flag.FlagSet
	execs commandList
}

func parseInteractiveCmd(args []string, r *root) (*interactiveCmd, error) {
	fs := flag.NewFlagSet("interactive", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	i := &interactiveCmd{root: r, fs: fs}
	fs.Usage = usageFunc(i)
	fs.Var(&i.execs, "e", "execute a command and exit (may be specified multiple times)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: i}
	}
	return i, nil
}

func (i *interactiveCmd) Program() string {
	return i.subcommand("interactive")
}

func (i *interactiveCmd) FlagSet() *flag.FlagSet {
	return i.fs
}

// executeLine runs one shell line. done is true when the line asks to leave.
func (i *interactiveCmd) executeLine(line string) (done bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false, nil
	}
	args, err := shellwords.Parse(line)
	if err != nil {
		return false, fmt.Errorf("parse %q: %w", line, err)
	}
	if len(args) == 0 {
		return false, nil
	}
	switch args[0] {
	case "exit", "quit":
		return true, nil
	case "interactive":
		return false, nil
	case "help":
		return false, &UsageError{of: i.root}
	}
	return false, i.dispatch(args[0], args[1:])
}

func (i *interactiveCmd) report(err error) {
	var uerr *UsageError
	switch {
	case errors.Is(err, flag.ErrHelp):
	case errors.As(err, &uerr):
		fmt.Fprint(i.stderr, uerr.Error())
	default:
		fmt.Fprintln(i.stderr, err)
	}
}

func (i *interactiveCmd) Run() error {
	if len(i.execs) > 0 {
		for _, cmd := range i.execs {
			done, err := i.executeLine(cmd)
			if err != nil {
				return err
			}
			if done {
				break
			}
		}
		return nil
	}

	fmt.Fprintln(i.stdout, "Enter commands (type 'exit' to quit)")
	scanner := bufio.NewScanner(i.stdin)
	for {
		fmt.Fprint(i.stdout, "> ")
		if !scanner.Scan() {
			break
		}
		done, err := i.executeLine(scanner.Text())
		if err != nil {
			i.report(err)
		}
		if done {
			break
		}
	}
	return scanner.Err()
}
