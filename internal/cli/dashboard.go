package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/httpapi"
	"github.com/hasna/convo/internal/poll"
	"github.com/hasna/convo/internal/server"
	"github.com/hasna/convo/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func (a *app) dashboardCmd() *cobra.Command {
	var addr, socketPath string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the dashboard API (REST + websocket live feed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.DashboardAddr
			}
			if socketPath == "" {
				socketPath = a.cfg.SocketPath
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			hub := ws.NewHub()
			svc := httpapi.NewService(st, a.log).WithBroadcaster(hub)
			router := httpapi.NewRouter(svc, hub.Handler())

			// Bridge the store's live tail into the hub so writes from
			// other processes reach websocket clients too.
			sub, err := poll.Subscribe(st, poll.Options{
				Interval: a.cfg.PollInterval(),
				OnMessages: func(msgs []core.Message) {
					for _, m := range msgs {
						hub.Broadcast(m.To, map[string]any{
							"type":    "message.created",
							"message": m,
						})
					}
				},
			}, a.log)
			if err != nil {
				return err
			}
			defer sub.Stop()

			srv, err := server.New(addr, socketPath, router)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()
			fmt.Fprintf(cmd.ErrOrStderr(), "dashboard listening on %s\n", addr)

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&socketPath, "socket", "", "optional unix socket path")
	return cmd
}
