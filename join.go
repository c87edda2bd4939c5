package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"ChatDraw/internal/client"
	"ChatDraw/internal/config"
	lnet "ChatDraw/internal/net"
	"ChatDraw/internal/wire"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var joinCmd = &cobra.Command{
	Use:   "join [chatdraw://host:port]",
	Short: "Joins a session and reads chat and drawing commands from stdin.",
	Long: `Joins a session. Each input line is sent as chat unless it is one of:

  /line x1 y1 x2 y2     /rect x1 y1 x2 y2     /oval x1 y1 x2 y2
  /segment x1 y1 x2 y2  /pencil x y [x y ...] /eraser x y [x y ...]
  /color #RRGGBB        /width N              /clear
  /quit`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(v, cmd.Flags(), map[string]string{
			"server": config.KeyServer,
			"name":   config.KeyName,
			"color":  config.KeyColor,
			"width":  config.KeyWidth,
		})
	},
	RunE: runJoin,
}

func init() {
	flags := joinCmd.Flags()
	flags.String("server", fmt.Sprintf("localhost:%d", config.DefaultPort), "server host:port or share link")
	flags.String("name", "", "display name (prompted for when empty)")
	flags.String("color", "#000000", "pen color")
	flags.Float32("width", 2, "pen width")
}

// resolveServer prefers a link given as argument over the configured server.
func resolveServer(args []string, configured string) (string, error) {
	if len(args) > 0 {
		return lnet.ParseLink(args[0])
	}
	return lnet.ParseLink(configured)
}

func runJoin(cmd *cobra.Command, args []string) error {
	cfg, err := config.ClientFrom(v)
	if err != nil {
		return errors.Wrap(err, "load client config failed")
	}
	addr, err := resolveServer(args, cfg.Server)
	if err != nil {
		return err
	}

	in := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	name := cfg.Name
	for name == "" {
		fmt.Fprint(out, "Your name: ")
		if !in.Scan() {
			return errors.Wrap(client.ErrNoName, "no name entered")
		}
		name = strings.TrimSpace(in.Text())
	}

	c, err := client.NewClient(
		client.WithServerAddr(addr),
		client.WithTransport(cfg.Transport, cfg.SocketPath),
		client.WithName(name),
	)
	if err != nil {
		return errors.Wrap(err, "new client failed")
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()
	fmt.Fprintf(out, "Joined %s as %s, %d action(s) on the board.\n", addr, name, c.Board().Len())

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- c.Listen(ctx, func(msg wire.Message) { printMessage(out, c, msg) })
	}()

	lines := make(chan string)
	go readLines(ctx, in, lines)

	pen := &client.Pen{Color: cfg.Color, Width: cfg.Width}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-listenErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			input, err := pen.Parse(line)
			if err != nil {
				fmt.Fprintf(out, "! %v\n", err)
				continue
			}
			quit, err := c.Do(input)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// readLines forwards scanned lines until input ends or ctx is done, then closes
// lines.
func readLines(ctx context.Context, in *bufio.Scanner, lines chan<- string) {
	defer close(lines)
	for in.Scan() {
		select {
		case lines <- in.Text():
		case <-ctx.Done():
			return
		}
	}
}

func printMessage(w io.Writer, c *client.Client, msg wire.Message) {
	switch msg.Kind {
	case wire.KindChat:
		fmt.Fprintln(w, msg.Text)
	case wire.KindDraw:
		fmt.Fprintf(w, "* %s drawn (%d on board)\n", msg.Action.Shape, c.Board().Len())
	case wire.KindClear:
		fmt.Fprintln(w, "* board cleared")
	}
}
