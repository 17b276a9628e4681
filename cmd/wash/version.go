package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wascc/wcc/internal/format"
	"github.com/wascc/wcc/internal/version"
)

func newVersionCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := format.ParseOutput(output)
			if err != nil {
				return err
			}
			info := version.Describe()
			text := info.Text()
			if kind != format.OutputText {
				if text, err = format.Encode(kind, info); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	return cmd
}
