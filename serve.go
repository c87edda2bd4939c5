package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ChatDraw/internal/config"
	lnet "ChatDraw/internal/net"
	"ChatDraw/internal/session"
	"ChatDraw/internal/wire"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Hosts a session.",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(v, cmd.Flags(), map[string]string{
			"addr":          config.KeyAddr,
			"echo":          config.KeyEcho,
			"write-timeout": config.KeyWriteTimeout,
			"idle-timeout":  config.KeyIdleTimeout,
			"advertise":     config.KeyAdvertise,
			"instance":      config.KeyInstance,
		})
	},
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.String("addr", fmt.Sprintf(":%d", config.DefaultPort), "address to listen on")
	flags.Bool("echo", true, "send clients their own messages back")
	flags.Duration("write-timeout", session.DefaultWriteTimeout, "drop clients that take longer to accept a message (0 disables)")
	flags.Duration("idle-timeout", 0, "disconnect clients that send nothing for this long (0 disables)")
	flags.Bool("advertise", false, "announce the session over mDNS")
	flags.String("instance", "", "mDNS instance name (default hostname)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.ServerFrom(v)
	if err != nil {
		return errors.Wrap(err, "load server config failed")
	}

	id := ulid.Make().String()
	log := logger.WithFields(logrus.Fields{"session": id})

	sup, err := session.NewSupervisor(
		session.WithEcho(cfg.Echo),
		session.WithWriteTimeout(cfg.WriteTimeout),
		session.WithIdleTimeout(cfg.IdleTimeout),
		session.WithLogger(log),
	)
	if err != nil {
		return errors.Wrap(err, "new supervisor failed")
	}

	ln, err := wire.Listen(cfg.Transport, cfg.Addr, cfg.SocketPath)
	if err != nil {
		return err
	}
	port := lnet.PortOf(ln.Addr())
	fmt.Fprintf(cmd.OutOrStdout(), "Share this link: %s\n", lnet.ShareLink(lnet.GetOutgoingIP(), port))

	if cfg.Advertise {
		server, err := lnet.Advertise(cfg.Instance, port, id, cfg.Transport)
		if err != nil {
			log.WithError(err).Warn("mDNS advertisement unavailable")
		} else {
			defer func() {
				if err := server.Shutdown(); err != nil {
					log.WithError(err).Warn("stop mDNS advertisement failed")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return errors.Wrap(sup.Serve(ctx, ln), "serve failed")
}
