package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/purpleshop/filebridge/cmd/filebridge/internal"
	"github.com/purpleshop/filebridge/pkg/bus"
	"github.com/purpleshop/filebridge/pkg/logger"
	"github.com/purpleshop/filebridge/pkg/platform"
	"github.com/purpleshop/filebridge/pkg/platform/discord"
	"github.com/purpleshop/filebridge/pkg/relay"
	"github.com/purpleshop/filebridge/pkg/resolve"
	"github.com/purpleshop/filebridge/pkg/storage"
	"github.com/purpleshop/filebridge/pkg/web"
)

func gatewayCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Discord.Token == "" {
		return fmt.Errorf("discord token not configured: set DISCORD_TOKEN or discord.token in %s", internal.GetConfigPath())
	}
	if cfg.Discord.GuildID == "" || cfg.Discord.StorageChannelID == "" {
		return fmt.Errorf("discord.guild_id and discord.storage_channel_id must be set in %s", internal.GetConfigPath())
	}

	client, err := discord.New(cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("error creating discord client: %w", err)
	}

	postBus := bus.NewPostBus()
	uploader := storage.NewUploader(client, cfg.Discord.StorageChannelID)
	resolver := resolve.NewResolver(client)
	origin := web.NewOrigin(cfg.Gateway.PublicURL, cfg.Gateway.Port)

	pipeline := relay.New(
		client,
		uploader,
		origin,
		cfg.Discord.GuildID,
		cfg.Discord.StorageChannelID,
		relay.WithCallTimeout(cfg.RequestTimeout()),
	)

	webServer := web.NewServer(resolver, uploader, origin, cfg.Gateway.MaxUploadBytes)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client.OnMessage(func(msg *platform.Message, fromAutomated bool) {
		pctx, pcancel := context.WithTimeout(ctx, 5*time.Second)
		defer pcancel()
		if err := postBus.Publish(pctx, bus.InboundPost{Message: msg, FromAutomated: fromAutomated}); err != nil {
			logger.WarnCF("gateway", "Dropping inbound post", map[string]any{"error": err.Error()})
		}
	})

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("error connecting to discord: %w", err)
	}
	fmt.Println("✓ Discord gateway connected")

	go pipeline.Run(ctx, postBus)
	fmt.Println("✓ Relay worker started")

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
		Handler: webServer.Handler(),
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCF("web", "HTTP server error", map[string]any{"error": err.Error()})
		}
	}()

	fmt.Printf("✓ Gateway started on %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Printf("✓ Share links served from %s\n", origin.BaseURL())
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")
	postBus.Close()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WarnCF("web", "HTTP shutdown error", map[string]any{"error": err.Error()})
	}
	client.Stop()
	fmt.Println("✓ Gateway stopped")

	return nil
}
