package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/provide-io/storypack/go/storypack/pkg"
	"github.com/provide-io/storypack/go/storypack/pkg/logging"
	"github.com/provide-io/storypack/go/storypack/pkg/pack/format_raw"
	"github.com/provide-io/storypack/go/storypack/pkg/story"
)

type rootOptions struct {
	logLevel string
}

func (o *rootOptions) logger() hclog.Logger {
	level := o.logLevel
	if level == "" {
		level = logging.GetLogLevel()
	}
	return logging.NewLogger("storypack-inspector", level, nil)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "storypack-inspector",
		Short:         "Inspect raw story packs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	cmd.AddCommand(newLayoutCommand(opts))
	cmd.AddCommand(newNodesCommand(opts))
	cmd.AddCommand(newVerifyCommand(opts))
	return cmd
}

func openPack(path string, logger hclog.Logger) (*format_raw.Reader, error) {
	reader, err := format_raw.NewReaderWithLogger(path, logger)
	if err != nil {
		return nil, err
	}
	if err := reader.Open(); err != nil {
		return nil, err
	}
	return reader, nil
}

func newLayoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "layout <pack>",
		Short: "Show the sector map of a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := openPack(args[0], opts.logger())
			if err != nil {
				return err
			}
			defer reader.Close()

			alloc, err := reader.VerifyLayout(format_raw.ReadOptions{})
			if err != nil {
				return err
			}

			regions := alloc.Layout()
			rows := make([][]string, 0, len(regions))
			for _, r := range regions {
				addr := "-"
				if r.Addr >= 0 {
					addr = strconv.Itoa(r.Addr)
				}
				rows = append(rows, []string{
					string(r.Kind),
					r.Label,
					addr,
					strconv.Itoa(r.Sectors),
					fmt.Sprintf("0x%08x", r.FileOffset),
					humanize.Bytes(uint64(r.Size)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Region", "Label", "Addr", "Sectors", "Offset", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "%d regions, %s\n", len(regions), humanize.Bytes(uint64(alloc.FileSize())))
			return nil
		},
	}
}

func newNodesCommand(opts *rootOptions) *cobra.Command {
	var enriched bool
	cmd := &cobra.Command{
		Use:   "nodes <pack>",
		Short: "List the stage nodes of a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := openPack(args[0], opts.logger())
			if err != nil {
				return err
			}
			defer reader.Close()

			pack, err := reader.ReadPack(format_raw.ReadOptions{Enriched: enriched})
			if err != nil {
				return err
			}

			if pack.Enriched != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n\n", pack.Enriched.Title, pack.Enriched.Description)
			}

			rows := make([][]string, 0, len(pack.StageNodes))
			for i, node := range pack.StageNodes {
				name := ""
				if node.Enriched != nil {
					name = node.Enriched.Name
				}
				rows = append(rows, []string{
					strconv.Itoa(i),
					node.UUID.String(),
					name,
					assetSize(node.Image),
					assetSize(node.Audio),
					describeTransition(pack, node.OkTransition),
					describeTransition(pack, node.HomeTransition),
					describeControls(node.ControlSettings),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "UUID", "Name", "Image", "Audio", "Ok", "Home", "Controls"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "version %d, factory disabled: %t\n", pack.Version, pack.FactoryDisabled)
			return nil
		},
	}
	cmd.Flags().BoolVar(&enriched, "enriched", false, "Decode authoring metadata")
	return cmd
}

func newVerifyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <pack>",
		Short: "Check the signature and layout of a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := pkg.VerifyPackageWithLogger(args[0], opts.logger())
			if report == nil {
				return err
			}

			rows := [][]string{
				{"size", humanize.Bytes(uint64(report.Size))},
				{"version", strconv.Itoa(report.Version)},
				{"stage nodes", strconv.Itoa(report.StageNodes)},
				{"action nodes", strconv.Itoa(report.ActionNodes)},
				{"assets", strconv.Itoa(report.Assets)},
				{"signature", check(report.SignatureValid)},
				{"layout", check(report.LayoutValid)},
			}
			for _, p := range report.Problems {
				rows = append(rows, []string{"problem", p})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", report.Path}, rows, nil))
			return err
		},
	}
}

func check(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

// assetSize shows the size the media header declares, the stored span
// being padded to whole sectors.
func assetSize(asset *story.MediaAsset) string {
	if asset == nil {
		return "-"
	}
	if n := story.DeclaredLength(asset.Data); n > 0 {
		return humanize.Bytes(uint64(n))
	}
	return humanize.Bytes(uint64(len(asset.Data))) + " (span)"
}

func describeTransition(pack *story.Pack, t *story.Transition) string {
	if t == nil {
		return "-"
	}
	if t.OptionIndex < 0 || t.OptionIndex >= len(t.ActionNode.Options) {
		return fmt.Sprintf("option %d of %d", t.OptionIndex, len(t.ActionNode.Options))
	}
	target := t.ActionNode.Options[t.OptionIndex]
	return fmt.Sprintf("→ %d (%d/%d)", pack.StageNodeIndex()[target], t.OptionIndex+1, len(t.ActionNode.Options))
}

func describeControls(c story.ControlSettings) string {
	var flags []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{c.WheelEnabled, "wheel"},
		{c.OkEnabled, "ok"},
		{c.HomeEnabled, "home"},
		{c.PauseEnabled, "pause"},
		{c.AutoJumpEnabled, "autojump"},
	} {
		if f.on {
			flags = append(flags, f.name)
		}
	}
	return strings.Join(flags, ",")
}
