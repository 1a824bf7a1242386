package main

import (
	"github.com/spf13/cobra"

	"github.com/esphome-native/esphome-go/cmd/esphome-ctl/logcmd"
)

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Read protocol capture files",
	}

	var opts logcmd.FilterOptions
	addFilterFlags := func(c *cobra.Command) {
		f := c.Flags()
		f.StringVar(&opts.ConnID, "conn", "", "Filter by connection ID")
		f.StringVar(&opts.Device, "device", "", "Filter by device")
		f.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, wire, connection)")
		f.StringVar(&opts.Direction, "dir", "", "Filter by direction (in, out)")
		f.StringVar(&opts.Category, "category", "", "Filter by category (message, control, state, error)")
		f.StringVar(&opts.MessageType, "type", "", "Filter by message type name or number")
		f.StringVar(&opts.TimeStart, "from", "", "Only events at or after this RFC 3339 time")
		f.StringVar(&opts.TimeEnd, "to", "", "Only events before this RFC 3339 time")
	}

	view := &cobra.Command{
		Use:   "view <file>",
		Short: "Print events in human-readable form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}
			return logcmd.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}
	addFilterFlags(view)

	stats := &cobra.Command{
		Use:   "stats <file>",
		Short: "Summarize events per layer, type and connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}
			return logcmd.RunStats(args[0], filter, cmd.OutOrStdout())
		},
	}
	addFilterFlags(stats)

	var format string
	export := &cobra.Command{
		Use:   "export <file>",
		Short: "Export events as JSON lines or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}
			return logcmd.RunExport(args[0], format, filter, cmd.OutOrStdout())
		},
	}
	addFilterFlags(export)
	export.Flags().StringVarP(&format, "format", "f", "jsonl", "Output format (jsonl, csv)")

	cmd.AddCommand(view, stats, export)
	return cmd
}
