package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wascc/wcc/internal/format"
	"github.com/wascc/wcc/internal/par"
	"pkt.systems/pslog"
)

func newParCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "par",
		Short: "Create, inspect and modify provider archives",
	}
	cmd.AddCommand(newParCreateCmd())
	cmd.AddCommand(newParInspectCmd())
	cmd.AddCommand(newParInsertCmd())
	return cmd
}

func newParCreateCmd() *cobra.Command {
	var claims par.Claims
	var arch, binary, output string
	cmd := &cobra.Command{
		Use:   "create [version]",
		Short: "Build a provider archive file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				claims.Version = args[0]
			}
			lib, err := os.ReadFile(binary)
			if err != nil {
				return err
			}
			archive := par.New(claims)
			if err := archive.Insert(arch, lib); err != nil {
				return err
			}
			if output == "" {
				output = par.DefaultOutput(binary)
			}
			if err := archive.Save(output); err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Debug("provider archive created", "path", output, "target", arch)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Successfully created %s\n", output)
			return err
		},
	}
	cmd.Flags().StringVar(&claims.CapID, "capid", "", "capability contract ID (e.g. wascc:messaging or wascc:keyvalue)")
	cmd.Flags().StringVarP(&claims.Vendor, "vendor", "v", "", "vendor string identifying the publisher of the provider")
	cmd.Flags().Int32VarP(&claims.Revision, "revision", "r", 0, "monotonically increasing revision number")
	cmd.Flags().StringVarP(&claims.Name, "name", "n", "", "name of the capability provider")
	cmd.Flags().StringVarP(&arch, "arch", "a", "", "architecture of the initial binary as ARCH-OS (e.g. x86_64-linux)")
	cmd.Flags().StringVarP(&binary, "binary", "b", "", "path to the provider binary")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default <binary stem>.par)")
	for _, name := range []string{"capid", "vendor", "name", "arch", "binary"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newParInspectCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Inspect a provider archive file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := format.ParseOutput(output)
			if err != nil {
				return err
			}
			archive, err := par.Load(args[0])
			if err != nil {
				return err
			}
			summary := archive.Summarize()
			text := summary.Text()
			if kind != format.OutputText {
				if text, err = format.Encode(kind, summary); err != nil {
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

func newParInsertCmd() *cobra.Command {
	var arch, binary string
	cmd := &cobra.Command{
		Use:   "insert <archive>",
		Short: "Insert a provider binary into a provider archive file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := par.Load(args[0])
			if err != nil {
				return err
			}
			lib, err := os.ReadFile(binary)
			if err != nil {
				return err
			}
			if err := archive.Insert(arch, lib); err != nil {
				return err
			}
			if err := archive.Save(args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Successfully inserted %s into %s\n", arch, args[0])
			return err
		},
	}
	cmd.Flags().StringVarP(&arch, "arch", "a", "", "architecture of the binary as ARCH-OS (e.g. x86_64-linux)")
	cmd.Flags().StringVarP(&binary, "binary", "b", "", "path to the binary to insert")
	_ = cmd.MarkFlagRequired("arch")
	_ = cmd.MarkFlagRequired("binary")
	return cmd
}
