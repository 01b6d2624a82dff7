package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/periscope"
	"pkt.systems/periscope/internal/mockengine"
	"pkt.systems/pslog"
)

func newDemoCmd() *cobra.Command {
	var cfgPath string
	var host string
	var port int
	var showQR bool
	var delayMS int
	var autoApprove bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Start the hub with a scripted mock session engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := loadServeConfig(cfgPath, host, port, cmd.Flags().Changed("port"))
			if err != nil {
				return err
			}

			server := periscope.New(periscope.ServerConfig{HTTP: cfg}, periscope.ServerDeps{Logger: logger})
			engine := mockengine.New(server.Sink(), mockengine.Config{
				Delay:       time.Duration(delayMS) * time.Millisecond,
				AutoApprove: autoApprove,
			}, logger)
			server.SetEngine(engine)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				server.Stop()
			}()

			if err := server.Start(ctx); err != nil {
				return err
			}
			announce(cmd, server, cfg.Host, showQR)
			go func() {
				if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Warn("mock engine stopped", "err", err)
				}
			}()
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&host, "host", "", "listen address (overrides config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	cmd.Flags().BoolVar(&showQR, "qr", false, "print a QR code with the viewer URL")
	cmd.Flags().IntVar(&delayMS, "delay-ms", 150, "pacing between scripted events")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "answer confirmation requests automatically")
	return cmd
}
