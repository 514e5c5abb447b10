package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/andrea-bruno/cloudsync/internal/config"
	"github.com/andrea-bruno/cloudsync/internal/engine"
	"github.com/andrea-bruno/cloudsync/internal/wstransport"
)

// syncPath is the HTTP path a server role upgrades to a WebSocket
// connection; a client role dials the same path on the configured peer.
const syncPath = "/sync"

// peerIDQueryParam carries the dialing side's identity so the accepting
// side can register the connection under the right peer id — this daemon
// syncs with exactly one paired peer per CloudRoot, so there is no
// separate discovery or enrollment step beyond the shared PIN.
const peerIDQueryParam = "peer_id"

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync daemon, keeping the configured directory converged with its peer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context())
		},
	}

	return cmd
}

func runDaemon(ctx context.Context) error {
	cc := mustCLIContext(ctx)
	cfg := cc.Cfg
	logger := cc.Logger

	pidPath := config.PIDFilePath()

	cleanup, err := writePIDFile(pidPath)
	if err != nil {
		return err
	}
	defer cleanup()

	content, deleted, err := loadContentAndDeleted(cfg, logger)
	if err != nil {
		return err
	}

	bridge := &transportBridge{}
	bridge.ws = wstransport.New(bridge, logger)

	engCfg, err := buildEngineConfig(cfg, cc.Holder, bridge, logger)
	if err != nil {
		return err
	}

	eng, err := engine.New(engCfg, content, deleted)
	if err != nil {
		return fmt.Errorf("assembling engine: %w", err)
	}

	bridge.eng = eng

	runCtx := shutdownContext(ctx, logger)

	runCtx, reloadStop := installReloadHandler(runCtx, cc, logger)
	defer reloadStop()

	var metricsServer *http.Server
	if cfg.Network.MetricsAddr != "" {
		metricsServer = startMetricsServer(cfg.Network.MetricsAddr, logger)
		defer metricsServer.Close()
	}

	switch cfg.Role {
	case "client":
		if err := dialPeer(runCtx, bridge.ws, cfg); err != nil {
			return err
		}

		if pin := os.Getenv(masterPINEnvVar); pin != "" {
			if err := eng.Login(runCtx, cfg.Network.PeerAddr, cfg.UserID, "cloudsync/"+version, pin); err != nil {
				logger.Warn("run: initial login failed, will retry on next safety-net cycle", "error", err)
			}
		}
	case "server":
		httpServer := startSyncServer(cfg.Network.ListenAddr, bridge.ws, logger)
		defer httpServer.Close()
	}

	cc.Statusf("cloudsync running (role=%s, cloud_root=%s)\n", cfg.Role, cfg.CloudRoot)

	err = eng.Run(runCtx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if persistErr := persistState(cfg, eng); persistErr != nil {
		logger.Warn("run: persisting state on shutdown failed", "error", persistErr)
	}

	return err
}

// dialPeer opens the client-side WebSocket connection to the configured
// peer, identifying this instance via peerIDQueryParam so the server side
// registers the connection under the same id both sides use for Send.
func dialPeer(ctx context.Context, t *wstransport.Transport, cfg *config.Config) error {
	connectTimeout := 10 * time.Second
	if d, err := time.ParseDuration(cfg.Network.ConnectTimeout); err == nil && d > 0 {
		connectTimeout = d
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	url := fmt.Sprintf("ws://%s%s?%s=%s", cfg.Network.PeerAddr, syncPath, peerIDQueryParam, cfg.UserID)

	return t.Dial(dialCtx, cfg.Network.PeerAddr, url)
}

// startSyncServer listens for the peer's inbound WebSocket connection and
// upgrades it under the peer id it announces in the query string.
func startSyncServer(addr string, t *wstransport.Transport, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc(syncPath, func(w http.ResponseWriter, r *http.Request) {
		peerID := r.URL.Query().Get(peerIDQueryParam)
		if peerID == "" {
			http.Error(w, "missing "+peerIDQueryParam, http.StatusBadRequest)

			return
		}

		if err := t.Accept(w, r, peerID); err != nil {
			logger.Warn("run: accepting peer connection failed", "peer_id", peerID, "error", err)
		}
	})

	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("run: sync listener stopped", "error", err)
		}
	}()

	return server
}

// startMetricsServer exposes the engine's Prometheus registry on its own
// listener, separate from the sync WebSocket endpoint.
func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("run: metrics listener stopped", "error", err)
		}
	}()

	return server
}

// installReloadHandler re-resolves configuration on SIGHUP, so `pause`
// and `resume` (which edit the TOML file and signal the daemon) take
// effect without a restart. The returned context is the same one passed
// in; reload only swaps the Holder's contents.
func installReloadHandler(ctx context.Context, cc *CLIContext, logger *slog.Logger) (context.Context, func()) {
	sigCh := sighupChannel()

	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigCh:
				reloaded, err := config.LoadOrDefault(cc.Path, logger)
				if err != nil {
					logger.Warn("run: config reload failed", "error", err)

					continue
				}

				cc.Holder.Update(reloaded)
				logger.Info("run: config reloaded", "paused", reloaded.Paused)
			case <-done:
				return
			}
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// persistState flushes the content map and deleted-id list to disk so the
// next run starts from a warm snapshot instead of a full tree rebuild.
func persistState(cfg *config.Config, eng *engine.Engine) error {
	contentPath := contentSnapshotPathFor(cfg.CloudRoot, cfg.UserID)
	if err := eng.Content().Persist(contentPath); err != nil {
		return fmt.Errorf("persisting content map: %w", err)
	}

	return eng.Deleted().Persist()
}
