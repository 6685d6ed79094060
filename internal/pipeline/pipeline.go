// Package pipeline runs one comic posting: fetch comic, download image, upload it to the host, publish the post.
// The downloaded file is owned by the orchestrator and removed exactly once on every exit path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/UnendingLoop/ComicPoster/internal/model"
	"github.com/UnendingLoop/ComicPoster/internal/runlog"
	"github.com/rs/zerolog"
)

type ComicSource interface {
	FetchRandomComic(ctx context.Context) (*model.Comic, error)
}

type ImageFetcher interface {
	Download(ctx context.Context, imageURL string) (*model.LocalImageFile, error)
}

type ImagePreparer interface {
	Prepare(ctx context.Context, file *model.LocalImageFile) error
}

type MediaUploader interface {
	GetUploadTarget(ctx context.Context, groupID int64) (*model.UploadTarget, error)
	RawUpload(ctx context.Context, file *model.LocalImageFile, target *model.UploadTarget) (*model.UploadReceipt, error)
	ConfirmUpload(ctx context.Context, groupID int64, receipt *model.UploadReceipt) (*model.SavedMedia, error)
}

type PostPublisher interface {
	Publish(ctx context.Context, groupID int64, message string, media *model.SavedMedia) (*model.PostResult, error)
}

type Orchestrator struct {
	comics    ComicSource
	fetcher   ImageFetcher
	preparer  ImagePreparer // optional
	uploader  MediaUploader
	publisher PostPublisher
	logger    zerolog.Logger

	removeFile func(name string) error
	history    []model.State
}

func NewOrchestrator(cs ComicSource, f ImageFetcher, p ImagePreparer, u MediaUploader, pub PostPublisher, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		comics:     cs,
		fetcher:    f,
		preparer:   p,
		uploader:   u,
		publisher:  pub,
		logger:     logger,
		removeFile: os.Remove,
		history:    []model.State{model.StateIdle},
	}
}

// State returns the current state of the last run
func (o *Orchestrator) State() model.State {
	return o.history[len(o.history)-1]
}

// History returns every state the last run went through, starting from idle
func (o *Orchestrator) History() []model.State {
	return append([]model.State(nil), o.history...)
}

// Run performs a single posting to the wall of groupID. No step is retried: the first failure
// aborts the rest of the sequence, and the error is logged once and returned.
func (o *Orchestrator) Run(ctx context.Context, groupID int64) (err error) {
	logger, _ := runlog.NewRunLogger(o.logger)
	logger = logger.With().Int64("group_id", groupID).Logger()
	ctx = runlog.WithLogger(ctx, logger)
	o.history = []model.State{model.StateIdle}

	var (
		comic *model.Comic
		file  *model.LocalImageFile
		post  *model.PostResult
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panicked at %s: %v", o.State(), r)
		}
		failedAt := o.State()

		o.transition(logger, model.StateCleanup)
		if cErr := o.cleanup(logger, file); cErr != nil {
			if err == nil {
				err = fmt.Errorf("pipeline failed at %s: %w", model.StateCleanup, cErr)
			} else {
				err = errors.Join(err, cErr)
			}
		}
		if err != nil {
			o.transition(logger, model.StateFailed)
			ev := logger.Error().Err(err).Str("step", string(failedAt))
			if kind := model.KindOf(err); kind != "" {
				ev = ev.Str("kind", string(kind))
			}
			if post != nil {
				ev = ev.Int64("post_id", post.PostID)
			}
			ev.Msg("Comic posting failed")
			return
		}

		o.transition(logger, model.StateSucceeded)
		logger.Info().
			Int("comic", comic.Number).
			Int64("post_id", post.PostID).
			Msg("Comic posted successfully")
	}()

	// 1. comic metadata
	if err := o.enter(ctx, logger, model.StateFetchingComic); err != nil {
		return err
	}
	comic, err = o.comics.FetchRandomComic(ctx)
	if err != nil {
		return o.fail(err)
	}
	logger.Debug().Int("comic", comic.Number).Str("image_url", comic.ImageURL).Msg("Comic fetched")

	// 2. download - from here on the file must be released by the deferred cleanup
	if err := o.enter(ctx, logger, model.StateDownloading); err != nil {
		return err
	}
	file, err = o.fetcher.Download(ctx, comic.ImageURL)
	if err != nil {
		return o.fail(err)
	}

	// 3. fit the image into the host limits
	if o.preparer != nil {
		if err := o.enter(ctx, logger, model.StatePreparing); err != nil {
			return err
		}
		if err := o.preparer.Prepare(ctx, file); err != nil {
			return o.fail(err)
		}
	}

	// 4. phase one of the upload: target and bytes
	if err := o.enter(ctx, logger, model.StateUploading); err != nil {
		return err
	}
	target, err := o.uploader.GetUploadTarget(ctx, groupID)
	if err != nil {
		return o.fail(err)
	}
	receipt, err := o.uploader.RawUpload(ctx, file, target)
	if err != nil {
		return o.fail(err)
	}

	// 5. phase two: durable registration
	if err := o.enter(ctx, logger, model.StateConfirming); err != nil {
		return err
	}
	media, err := o.uploader.ConfirmUpload(ctx, groupID, receipt)
	if err != nil {
		return o.fail(err)
	}

	// 6. the post itself
	if err := o.enter(ctx, logger, model.StatePublishing); err != nil {
		return err
	}
	post, err = o.publisher.Publish(ctx, groupID, comic.Caption, media)
	if err != nil {
		return o.fail(err)
	}

	return nil
}

// enter moves to the next step unless the run was interrupted meanwhile
func (o *Orchestrator) enter(ctx context.Context, logger zerolog.Logger, next model.State) error {
	if err := ctx.Err(); err != nil {
		return o.fail(model.NewTransportError(string(next), err))
	}
	o.transition(logger, next)
	return nil
}

func (o *Orchestrator) fail(err error) error {
	return fmt.Errorf("pipeline failed at %s: %w", o.State(), err)
}

func (o *Orchestrator) transition(logger zerolog.Logger, next model.State) {
	logger.Debug().Str("from", string(o.State())).Str("to", string(next)).Msg("State changed")
	o.history = append(o.history, next)
}

// cleanup removes exactly the file this run created, nothing else
func (o *Orchestrator) cleanup(logger zerolog.Logger, file *model.LocalImageFile) error {
	if file == nil {
		return nil
	}
	if err := o.removeFile(file.Path); err != nil {
		return model.NewIOError("remove "+file.Path, err)
	}
	logger.Debug().Str("path", file.Path).Msg("Local image removed")
	return nil
}
