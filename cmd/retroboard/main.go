// Command retroboard runs the retrospective board server: a single static
// binary that opens the SQLite store, wires the domain services and
// real-time gateway, and serves the HTTP+SSE API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joestump/retroboard/internal/admin"
	"github.com/joestump/retroboard/internal/board"
	"github.com/joestump/retroboard/internal/card"
	"github.com/joestump/retroboard/internal/clock"
	"github.com/joestump/retroboard/internal/config"
	"github.com/joestump/retroboard/internal/gateway"
	"github.com/joestump/retroboard/internal/hasher"
	"github.com/joestump/retroboard/internal/identity"
	"github.com/joestump/retroboard/internal/presence"
	"github.com/joestump/retroboard/internal/reaction"
	"github.com/joestump/retroboard/internal/store"
	"github.com/joestump/retroboard/internal/web"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "retroboard",
		Short: "Collaborative retrospective board server",
		RunE:  run,
	}

	f := rootCmd.Flags()
	f.String("db-path", "retroboard.db", "path to the SQLite database file")
	f.Int("http-port", 8080, "HTTP port to listen on")
	f.Int("presence-window-seconds", 120, "seconds a session counts as active without a heartbeat")
	f.Int("shareable-link-length", 12, "hex character length of a board's shareable link")
	f.Int("shareable-link-retry-count", 5, "retries on shareable link collision before giving up")
	f.Int("subscriber-heartbeat-timeout-seconds", 60, "loaded into configuration only; the SSE stream applies no idle timeout")
	f.Int("subscriber-send-queue-capacity", 256, "per-subscriber bounded event queue size")
	f.String("admin-secret", "", "shared secret gating the administrative back channel (empty disables it)")
	f.Int("default-card-limit", 0, "default per-identity feedback card limit per board (0 = unlimited)")
	f.Int("default-reaction-limit", 0, "default per-identity reaction limit per board (0 = unlimited)")

	bindFlag := func(viperKey, flagName string) {
		_ = viper.BindPFlag(viperKey, f.Lookup(flagName))
	}
	bindFlag("db_path", "db-path")
	bindFlag("http_port", "http-port")
	bindFlag("presence_window_seconds", "presence-window-seconds")
	bindFlag("shareable_link_length", "shareable-link-length")
	bindFlag("shareable_link_retry_count", "shareable-link-retry-count")
	bindFlag("subscriber_heartbeat_timeout_seconds", "subscriber-heartbeat-timeout-seconds")
	bindFlag("subscriber_send_queue_capacity", "subscriber-send-queue-capacity")
	bindFlag("admin_secret", "admin-secret")
	bindFlag("default_card_limit", "default-card-limit")
	bindFlag("default_reaction_limit", "default-reaction-limit")

	viper.SetEnvPrefix("RETROBOARD")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	fmt.Println("retroboard starting")
	fmt.Printf("  DB path: %s\n", cfg.DBPath)
	fmt.Printf("  HTTP port: %d\n", cfg.HTTPPort)
	fmt.Printf("  Presence window: %ds\n", cfg.PresenceWindowSeconds)
	fmt.Println()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close() //nolint:errcheck

	gw := gateway.New().WithSendQueueCapacity(cfg.SubscriberSendQueueCapacity)
	clk := clock.System{}
	ident := identity.FromHasher{Hasher: hasher.SHA256{}}

	boardSvc := board.New(st, clk, gw, cfg.ShareableLinkLength, cfg.ShareableLinkRetryCount)
	cardSvc := card.New(st, clk, gw, cfg.DefaultCardLimit)
	reactionSvc := reaction.New(st, clk, gw, cfg.DefaultReactionLimit)
	presenceSvc := presence.New(st, clk, gw, cfg.PresenceWindowSeconds)
	adminSvc := admin.New(st, clk, gw, cfg.AdminSecret)

	srv := web.New(&cfg, gw, ident, boardSvc, cardSvc, reactionSvc, presenceSvc, adminSvc)
	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("web server error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		log.Printf("received %s, shutting down...", sig)
		cancel()
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("web server shutdown: %v", err)
	}

	return nil
}
