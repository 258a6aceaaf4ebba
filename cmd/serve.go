package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/meetingintel/internal/api"
	"github.com/sells-group/meetingintel/internal/config"
	"github.com/sells-group/meetingintel/internal/monitoring"
	"github.com/sells-group/meetingintel/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the brief API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitoring.Enabled {
			go newChecker(env.Store, cfg.Monitoring).Run(ctx)
		}

		srv := newHTTPServer(resolvePort(servePort, cfg.Server.Port), apiServer(env).Router())

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.Server))
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown incomplete", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func apiServer(env *pipelineEnv) *api.Server {
	return api.NewServer(env.Service, env.Store, api.Options{
		Timeout:        time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKeys:        cfg.Server.APIKeys,
	})
}

func newHTTPServer(port int, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// resolvePort prefers the flag value over config.
func resolvePort(flag, configured int) int {
	if flag > 0 {
		return flag
	}
	return configured
}

func shutdownTimeout(sc config.ServerConfig) time.Duration {
	if sc.ShutdownTimeoutSecs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(sc.ShutdownTimeoutSecs) * time.Second
}

func newChecker(st store.Store, mc config.MonitoringConfig) *monitoring.Checker {
	return monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(mc), mc)
}
