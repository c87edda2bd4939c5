package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ChatDraw/internal/client"
	"ChatDraw/internal/config"
	"ChatDraw/internal/export"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [chatdraw://host:port]",
	Short: "Joins a session, saves the current board and leaves.",
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(v, cmd.Flags(), map[string]string{
			"server": config.KeyServer,
			"name":   config.KeyName,
		})
	},
	RunE: runSnapshot,
}

func init() {
	flags := snapshotCmd.Flags()
	flags.String("server", fmt.Sprintf("localhost:%d", config.DefaultPort), "server host:port or share link")
	flags.String("name", "snapshot", "display name shown to the session")
	flags.String("format", "", "pdf or txt (default from --out extension)")
	flags.StringP("out", "o", "board.pdf", "output file, - for stdout")
}

// exportFormat picks the explicit format or derives it from the output path.
func exportFormat(format, out string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	if ext := strings.TrimPrefix(filepath.Ext(out), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return export.FormatPDF
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := config.ClientFrom(v)
	if err != nil {
		return errors.Wrap(err, "load client config failed")
	}
	addr, err := resolveServer(args, cfg.Server)
	if err != nil {
		return err
	}
	name := cfg.Name
	if name == "" {
		name = "snapshot"
	}
	out, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")
	format = exportFormat(format, out)

	c, err := client.NewClient(
		client.WithServerAddr(addr),
		client.WithTransport(cfg.Transport, cfg.SocketPath),
		client.WithName(name),
	)
	if err != nil {
		return errors.Wrap(err, "new client failed")
	}
	if err := c.Connect(cmd.Context()); err != nil {
		return err
	}
	actions := c.Board().Actions()
	if err := c.Close(); err != nil {
		logger.WithError(err).Debug("close connection failed")
	}

	if out == "-" {
		return export.Write(cmd.OutOrStdout(), format, actions)
	}
	f, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "create %s failed", out)
	}
	if err := export.Write(f, format, actions); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s failed", out)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d action(s) to %s\n", len(actions), out)
	return nil
}
