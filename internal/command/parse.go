package command

import (
	"bytes"
	"errors"
	"strings"
)

// ParseError describes a line that did not produce a command. Help is set
// when the grammar printed help text instead of failing.
type ParseError struct {
	Input   string
	Message string
	Help    bool
	Err     error
}

func (e *ParseError) Error() string {
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse tokenizes a console line on whitespace and parses it.
func Parse(line string) (Command, error) {
	cmd, err := ParseArgs(strings.Fields(line))
	var perr *ParseError
	if errors.As(err, &perr) {
		perr.Input = line
	}
	return cmd, err
}

// ParseArgs parses pre-split arguments against the command grammar.
func ParseArgs(args []string) (Command, error) {
	var parsed Command
	root := NewGrammar(ReplName, func(c Command) { parsed = c })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	input := strings.Join(args, " ")
	if err := root.Execute(); err != nil {
		return nil, &ParseError{Input: input, Message: strings.TrimSpace(err.Error()), Err: err}
	}
	if parsed == nil {
		return nil, &ParseError{Input: input, Message: strings.TrimRight(out.String(), "\n"), Help: true}
	}
	return parsed, nil
}
