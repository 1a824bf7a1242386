package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/esphome-native/esphome-go/pkg/discovery"
)

func discoverCmd() *cobra.Command {
	var (
		timeout   time.Duration
		iface     string
		plaintext bool
		asJSON    bool
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "discover [name]",
		Short: "Browse the network for ESPHome devices",
		Long: `Browse mDNS for _esphomelib._tcp services and print what answered
within the timeout. With a name, wait for that device only.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			browser := discovery.NewBrowser(discovery.BrowserConfig{
				Interface:        iface,
				IncludePlaintext: plaintext,
				Logger:           logger,
			})
			defer browser.Stop()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var devices []*discovery.Device
			if len(args) == 1 {
				d, err := browser.Find(ctx, args[0])
				if err != nil {
					return fmt.Errorf("find %s: %w", args[0], err)
				}
				devices = append(devices, d)
			} else if devices, err = browser.Scan(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(devices)
			}
			if len(devices) == 0 {
				fmt.Fprintln(out, "No devices found.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tADDRESS\tPORT\tVERSION\tPLATFORM\tENCRYPTION")
			for _, d := range devices {
				enc := d.APIEncryption
				if enc == "" {
					enc = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", d.Name, d.Address(), d.Port, d.Version, d.Platform, enc)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", discovery.BrowseTimeout, "How long to browse")
	cmd.Flags().StringVarP(&iface, "interface", "i", "", "Network interface to browse on")
	cmd.Flags().BoolVar(&plaintext, "plaintext", false, "Include devices without API encryption")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level")
	return cmd
}
