package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"pkt.systems/periscope"
	"pkt.systems/periscope/httpapi"
	"pkt.systems/periscope/internal/appconfig"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var host string
	var port int
	var showQR bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the viewer hub and wait for a session engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := loadServeConfig(cfgPath, host, port, cmd.Flags().Changed("port"))
			if err != nil {
				return err
			}

			server := periscope.New(periscope.ServerConfig{HTTP: cfg}, periscope.ServerDeps{Logger: logger})

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
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&host, "host", "", "listen address (overrides config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	cmd.Flags().BoolVar(&showQR, "qr", false, "print a QR code with the viewer URL")
	return cmd
}

func loadServeConfig(cfgPath, host string, port int, portSet bool) (httpapi.Config, error) {
	fileCfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return httpapi.Config{}, err
	}
	cfg := httpapi.Config{
		Host:       fileCfg.HTTP.Host,
		Port:       fileCfg.HTTP.Port,
		SendBuffer: fileCfg.HTTP.SendBuffer,
		Welcome:    fileCfg.HTTP.Welcome,
	}
	if host != "" {
		cfg.Host = host
	}
	if portSet {
		cfg.Port = port
	}
	return cfg.Normalize(), nil
}

// announce prints the viewer URL once the port is actually bound, which
// may differ from the configured port after an ephemeral fallback.
func announce(cmd *cobra.Command, server *periscope.Server, host string, showQR bool) {
	url := fmt.Sprintf("http://%s:%d/", host, server.Port())
	pslog.Ctx(cmd.Context()).Info("viewer hub listening", "url", url)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "viewer URL: %s\n", url)
	if showQR {
		qrterminal.GenerateWithConfig(url, qrterminal.Config{
			Level:     qrterminal.L,
			Writer:    cmd.OutOrStdout(),
			BlackChar: qrterminal.BLACK,
			WhiteChar: qrterminal.WHITE,
			QuietZone: 1,
		})
	}
}
