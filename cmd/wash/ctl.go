package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wascc/wcc/internal/appconfig"
	"github.com/wascc/wcc/internal/command"
	"github.com/wascc/wcc/internal/format"
	"github.com/wascc/wcc/lattice"
	"github.com/wascc/wcc/schema"
	"pkt.systems/pslog"
)

// ctlArgs are the ctl arguments once the flags owned by ctl itself are removed.
type ctlArgs struct {
	configPath string
	output     string
	grammar    []string
}

func newCtlCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ctl <command> [args...] [-o text|json|yaml]",
		Short: "Run one lattice command and print its result",
		Long: "Run one console command (get, start, stop, link, call) against the lattice.\n" +
			"Results are printed as tables, or as JSON/YAML with -o.",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := splitCtlArgs(args)
			if err != nil {
				return err
			}
			if parsed.configPath == "" {
				parsed.configPath = opts.configPath
			}
			kind, err := format.ParseOutput(parsed.output)
			if err != nil {
				return err
			}

			c, err := command.ParseArgs(parsed.grammar)
			var perr *command.ParseError
			if errors.As(err, &perr) && perr.Help {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.ReplaceAll(perr.Message, command.ReplName, "wash ctl"))
				return err
			}
			if err != nil {
				return err
			}
			if !command.IsLattice(c) {
				return fmt.Errorf("%s: %w", c.Name(), schema.ErrNotLatticeCommand)
			}

			cfg, err := appconfig.Load(parsed.configPath)
			if err != nil {
				return err
			}
			endpoint := command.Endpoint(c, cfg.Endpoint())
			pslog.Ctx(cmd.Context()).Debug("ctl command", "command", c.Name(), "addr", endpoint.Address())
			res, err := command.Execute(cmd.Context(), lattice.NewDialer(), cfg.Endpoint(), c)
			if err != nil {
				return err
			}
			text, err := renderCtl(res, endpoint.Namespace, kind)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
}

// splitCtlArgs removes -c/--config and -o/--output from args and leaves the
// rest for the command grammar.
func splitCtlArgs(args []string) (ctlArgs, error) {
	out := ctlArgs{output: string(format.OutputText)}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var target *string
		switch {
		case arg == "-c" || arg == "--config":
			target = &out.configPath
		case arg == "-o" || arg == "--output":
			target = &out.output
		case strings.HasPrefix(arg, "--config="):
			out.configPath = strings.TrimPrefix(arg, "--config=")
			continue
		case strings.HasPrefix(arg, "--output="):
			out.output = strings.TrimPrefix(arg, "--output=")
			continue
		default:
			out.grammar = append(out.grammar, arg)
			continue
		}
		if i+1 >= len(args) {
			return ctlArgs{}, fmt.Errorf("flag needs an argument: %s", arg)
		}
		i++
		*target = args[i]
	}
	return out, nil
}

// renderCtl prints query results as tables and everything else as the
// console text, unless a structured output is requested.
func renderCtl(res command.Result, namespace string, kind format.Output) (string, error) {
	if kind != format.OutputText {
		return format.Encode(kind, res.Value)
	}
	switch v := res.Value.(type) {
	case []schema.Host:
		return format.HostsTable(namespace, v), nil
	case schema.HostInventory:
		return format.InventoryTable(v), nil
	case schema.ClaimsList:
		return format.ClaimsTable(namespace, v), nil
	}
	return res.Text(), nil
}
