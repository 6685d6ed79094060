package pipeline

import (
	"context"

	"github.com/UnendingLoop/ComicPoster/internal/model"
)

type mockComicSource struct {
	fetchFn func(ctx context.Context) (*model.Comic, error)
}

func (m *mockComicSource) FetchRandomComic(ctx context.Context) (*model.Comic, error) {
	return m.fetchFn(ctx)
}

type mockFetcher struct {
	downloadFn func(ctx context.Context, imageURL string) (*model.LocalImageFile, error)
}

func (m *mockFetcher) Download(ctx context.Context, imageURL string) (*model.LocalImageFile, error) {
	return m.downloadFn(ctx, imageURL)
}

type mockPreparer struct {
	prepareFn func(ctx context.Context, file *model.LocalImageFile) error
}

func (m *mockPreparer) Prepare(ctx context.Context, file *model.LocalImageFile) error {
	return m.prepareFn(ctx, file)
}

//----------------------------------

type mockUploader struct {
	targetFn  func(ctx context.Context, groupID int64) (*model.UploadTarget, error)
	uploadFn  func(ctx context.Context, file *model.LocalImageFile, target *model.UploadTarget) (*model.UploadReceipt, error)
	confirmFn func(ctx context.Context, groupID int64, receipt *model.UploadReceipt) (*model.SavedMedia, error)
}

func (m *mockUploader) GetUploadTarget(ctx context.Context, groupID int64) (*model.UploadTarget, error) {
	return m.targetFn(ctx, groupID)
}

func (m *mockUploader) RawUpload(ctx context.Context, file *model.LocalImageFile, target *model.UploadTarget) (*model.UploadReceipt, error) {
	return m.uploadFn(ctx, file, target)
}

func (m *mockUploader) ConfirmUpload(ctx context.Context, groupID int64, receipt *model.UploadReceipt) (*model.SavedMedia, error) {
	return m.confirmFn(ctx, groupID, receipt)
}

type mockPublisher struct {
	publishFn func(ctx context.Context, groupID int64, message string, media *model.SavedMedia) (*model.PostResult, error)
}

func (m *mockPublisher) Publish(ctx context.Context, groupID int64, message string, media *model.SavedMedia) (*model.PostResult, error) {
	return m.publishFn(ctx, groupID, message, media)
}
