// Package main posts one random comic to the community wall and exits
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnendingLoop/ComicPoster/internal/appconfig"
	"github.com/UnendingLoop/ComicPoster/internal/comic"
	"github.com/UnendingLoop/ComicPoster/internal/download"
	"github.com/UnendingLoop/ComicPoster/internal/imageproc"
	"github.com/UnendingLoop/ComicPoster/internal/media"
	"github.com/UnendingLoop/ComicPoster/internal/pipeline"
	"github.com/UnendingLoop/ComicPoster/internal/publisher"
	"github.com/UnendingLoop/ComicPoster/internal/vkapi"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	os.Exit(run())
}

func run() int {
	// стартуем логгер
	zlog.InitConsole()

	// инициализировать конфиг/ считать энвы
	cfg, err := appconfig.New("./.env")
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to load envs")
		return exitConfig
	}
	settings, err := appconfig.Load(cfg)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Invalid configuration")
		return exitConfig
	}
	if err := zlog.SetLevel(settings.LogLevel); err != nil {
		zlog.Logger.Error().Err(err).Str("level", settings.LogLevel).Msg("Failed to set log level")
		return exitConfig
	}

	// прерывание отменяет текущий запрос, файл всё равно удаляется
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hc := &http.Client{Timeout: settings.HTTPTimeout}
	host := vkapi.NewClient(settings.APIBase, settings.AccessToken, settings.APIVersion, hc)

	orchestrator := pipeline.NewOrchestrator(
		comic.NewClient(settings.ComicBaseURL, hc),
		download.NewFetcher(settings.DownloadDir, hc),
		imageproc.NewPreparer(settings.MaxImageSides),
		media.NewUploader(host),
		publisher.NewPublisher(host),
		zlog.Logger,
	)

	// итоговая строка лога пишется оркестратором
	return exitCode(orchestrator.Run(ctx, settings.GroupID))
}
