package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/wascc/wcc/schema"
)

// ReplName is the command path shown in console diagnostics.
const ReplName = "wash>"

// QuitAliases are the words that end the console besides quit.
var QuitAliases = []string{"exit", "logout", "q", ":q!"}

// NewGrammar builds the command tree. Leaf commands hand their parsed value
// to set instead of doing any work, so the tree can parse console lines and
// one-shot CLI arguments alike.
func NewGrammar(name string, set func(Command)) *cobra.Command {
	root := &cobra.Command{
		Use:                name,
		Short:              "Interact with a lattice",
		SilenceErrors:      true,
		SilenceUsage:       true,
		DisableSuggestions: true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		Args:               cobra.ArbitraryArgs,
		RunE:               runGroup,
	}
	root.AddCommand(
		newGetCmd(set),
		newCallCmd(set),
		newLinkCmd(set),
		newStartCmd(set),
		newStopCmd(set),
		&cobra.Command{
			Use:   "clear",
			Short: "Clear the console input and output",
			Args:  cobra.NoArgs,
			Run:   func(*cobra.Command, []string) { set(Clear{}) },
		},
		&cobra.Command{
			Use:     "quit",
			Short:   "Exit the console",
			Aliases: QuitAliases,
			Args:    cobra.NoArgs,
			Run:     func(*cobra.Command, []string) { set(Quit{}) },
		},
	)
	return root
}

// runGroup shows help for a bare group and rejects unknown subcommands.
func runGroup(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	return unknownCommand(cmd, args[0])
}

func unknownCommand(cmd *cobra.Command, arg string) error {
	var names []string
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		names = append(names, sub.Name())
		names = append(names, sub.Aliases...)
	}
	msg := fmt.Sprintf("unknown command %q for %q", arg, cmd.CommandPath())
	if matches := fuzzy.Find(arg, names); len(matches) > 0 {
		msg += fmt.Sprintf("; did you mean %q?", matches[0].Str)
	}
	return errors.New(msg)
}

func addRemoteFlags(cmd *cobra.Command, r *Remote) {
	flags := cmd.Flags()
	flags.StringVarP(&r.Endpoint.Host, "rpc-host", "r", "", "lattice host (defaults to the configured host)")
	flags.IntVarP(&r.Endpoint.Port, "rpc-port", "p", 0, "lattice port (defaults to the configured port)")
	flags.StringVarP(&r.Endpoint.Namespace, "ns-prefix", "n", "", "lattice namespace")
	flags.DurationVarP(&r.Endpoint.Timeout, "timeout", "t", 0, "request timeout, e.g. 2s")
}

func newGetCmd(set func(Command)) *cobra.Command {
	get := &cobra.Command{
		Use:   "get",
		Short: "Query lattice hosts, inventories and claims",
		Args:  cobra.ArbitraryArgs,
		RunE:  runGroup,
	}

	var hosts GetHosts
	hostsCmd := &cobra.Command{
		Use:   "hosts",
		Short: "List hosts in the lattice",
		Args:  cobra.NoArgs,
		Run:   func(*cobra.Command, []string) { set(hosts) },
	}
	addRemoteFlags(hostsCmd, &hosts.Remote)

	var inv GetInventory
	invCmd := &cobra.Command{
		Use:   "inventory <host-id>",
		Short: "List actors and providers of a host",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			inv.HostID = schema.HostID(args[0])
			set(inv)
		},
	}
	addRemoteFlags(invCmd, &inv.Remote)

	var claims GetClaims
	claimsCmd := &cobra.Command{
		Use:   "claims",
		Short: "List claims known to the lattice",
		Args:  cobra.NoArgs,
		Run:   func(*cobra.Command, []string) { set(claims) },
	}
	addRemoteFlags(claimsCmd, &claims.Remote)

	get.AddCommand(hostsCmd, invCmd, claimsCmd)
	return get
}

func newStartCmd(set func(Command)) *cobra.Command {
	start := &cobra.Command{
		Use:   "start",
		Short: "Start an actor or provider",
		Args:  cobra.ArbitraryArgs,
		RunE:  runGroup,
	}

	var actor StartActor
	actorCmd := &cobra.Command{
		Use:   "actor <host-id> <actor-ref>",
		Short: "Start an actor on a host",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			actor.HostID, actor.ActorRef = schema.HostID(args[0]), args[1]
			set(actor)
		},
	}
	addRemoteFlags(actorCmd, &actor.Remote)

	var provider StartProvider
	providerCmd := &cobra.Command{
		Use:   "provider <host-id> <provider-ref>",
		Short: "Start a capability provider on a host",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			provider.HostID, provider.ProviderRef = schema.HostID(args[0]), args[1]
			set(provider)
		},
	}
	addRemoteFlags(providerCmd, &provider.Remote)
	providerCmd.Flags().StringVarP(&provider.LinkName, "link-name", "l", schema.DefaultLinkName, "link name of the provider")

	start.AddCommand(actorCmd, providerCmd)
	return start
}

func newStopCmd(set func(Command)) *cobra.Command {
	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop an actor or provider",
		Args:  cobra.ArbitraryArgs,
		RunE:  runGroup,
	}

	var actor StopActor
	actorCmd := &cobra.Command{
		Use:   "actor <host-id> <actor-ref>",
		Short: "Stop an actor on a host",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			actor.HostID, actor.ActorRef = schema.HostID(args[0]), args[1]
			set(actor)
		},
	}
	addRemoteFlags(actorCmd, &actor.Remote)

	var provider StopProvider
	providerCmd := &cobra.Command{
		Use:   "provider <host-id> <provider-ref> <link-name> <contract-id>",
		Short: "Stop a capability provider on a host",
		Args:  cobra.ExactArgs(4),
		Run: func(_ *cobra.Command, args []string) {
			provider.HostID, provider.ProviderRef = schema.HostID(args[0]), args[1]
			provider.LinkName, provider.ContractID = args[2], args[3]
			set(provider)
		},
	}
	addRemoteFlags(providerCmd, &provider.Remote)

	stop.AddCommand(actorCmd, providerCmd)
	return stop
}

func newLinkCmd(set func(Command)) *cobra.Command {
	var link Link
	cmd := &cobra.Command{
		Use:   "link <actor-id> <provider-id> <contract-id> [key=value...]",
		Short: "Link an actor and a capability provider",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			link.Definition.ActorID = schema.ActorID(args[0])
			link.Definition.ProviderID = schema.ProviderID(args[1])
			link.Definition.ContractID = args[2]
			values, err := parseValues(args[3:])
			if err != nil {
				return err
			}
			link.Definition.Values = values
			set(link)
			return nil
		},
	}
	addRemoteFlags(cmd, &link.Remote)
	cmd.Flags().StringVarP(&link.Definition.LinkName, "link-name", "l", schema.DefaultLinkName, "link name")
	return cmd
}

func parseValues(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	values := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", schema.ErrInvalidLinkValue, arg)
		}
		values[key] = value
	}
	return values, nil
}

func newCallCmd(set func(Command)) *cobra.Command {
	var call Call
	cmd := &cobra.Command{
		Use:   "call <actor-id> <operation> [json-data...]",
		Short: "Invoke an operation on an actor",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			call.ActorID = schema.ActorID(args[0])
			call.Operation = args[1]
			data := strings.Join(args[2:], "")
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("%w: %s", schema.ErrInvalidPayload, data)
				}
				call.Payload = []byte(data)
			}
			set(call)
			return nil
		},
	}
	addRemoteFlags(cmd, &call.Remote)
	return cmd
}
