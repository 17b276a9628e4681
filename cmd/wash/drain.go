package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wascc/wcc/internal/appconfig"
	"github.com/wascc/wcc/internal/drain"
	"github.com/wascc/wcc/internal/format"
	"pkt.systems/pslog"
)

func newDrainCmd(opts *rootOptions) *cobra.Command {
	var output string
	var cacheRoot string
	cmd := &cobra.Command{
		Use:       "drain {all|oci|lib}",
		Short:     "Remove the contents of the local lattice caches",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(drain.All), string(drain.OCI), string(drain.Lib)},
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := drain.ParseSelection(args[0])
			if err != nil {
				return err
			}
			kind, err := format.ParseOutput(output)
			if err != nil {
				return err
			}
			root := cacheRoot
			if root == "" {
				cfg, err := appconfig.Load(opts.configPath)
				if err != nil {
					return err
				}
				root = cfg.Drain.CacheRoot
			}
			res, err := drain.Drain(sel, root)
			if err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Debug("caches drained", "selection", sel, "paths", res.Drained)
			text := res.Text()
			if kind != format.OutputText {
				if text, err = format.Encode(kind, res); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	cmd.Flags().StringVar(&cacheRoot, "cache-root", "", "directory holding the caches (default from config)")
	return cmd
}
