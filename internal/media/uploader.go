// Package media implements the host's two-phase photo upload: get an upload url, send bytes, save the result
package media

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"

	"github.com/UnendingLoop/ComicPoster/internal/model"
)

const (
	methodGetUploadServer = "photos.getWallUploadServer"
	methodSavePhoto       = "photos.saveWallPhoto"
	uploadField           = "photo"
)

var (
	ErrTargetReused  = errors.New("upload target was already used")
	ErrReceiptReused = errors.New("upload receipt was already used")
)

// HostClient - contract of the host transport
type HostClient interface {
	Call(ctx context.Context, method string, params url.Values, out any) error
	Upload(ctx context.Context, uploadURL, field, path string, out any) error
}

type Uploader struct {
	host HostClient

	mu       sync.Mutex
	targets  map[string]struct{} // upload urls already sent to
	receipts map[string]struct{} // receipt hashes already saved
}

func NewUploader(host HostClient) *Uploader {
	return &Uploader{
		host:     host,
		targets:  make(map[string]struct{}),
		receipts: make(map[string]struct{}),
	}
}

func (u *Uploader) GetUploadTarget(ctx context.Context, groupID int64) (*model.UploadTarget, error) {
	params := url.Values{}
	params.Set("group_id", strconv.FormatInt(groupID, 10))

	var target model.UploadTarget
	if err := u.host.Call(ctx, methodGetUploadServer, params, &target); err != nil {
		return nil, err
	}
	if target.UploadURL == "" {
		return nil, model.NewRemoteError(methodGetUploadServer, 0, "host returned empty upload_url")
	}
	return &target, nil
}

// RawUpload sends the file bytes to the target; each target is accepted once
func (u *Uploader) RawUpload(ctx context.Context, file *model.LocalImageFile, target *model.UploadTarget) (*model.UploadReceipt, error) {
	if target == nil {
		return nil, errors.New("nil upload target provided")
	}
	if err := u.consume(u.targets, target.UploadURL, ErrTargetReused); err != nil {
		return nil, err
	}
	if file == nil {
		return nil, model.NewIOError("upload", errors.New("nil file provided"))
	}

	var receipt model.UploadReceipt
	if err := u.host.Upload(ctx, target.UploadURL, uploadField, file.Path, &receipt); err != nil {
		return nil, err
	}
	// the host answers with an empty photo list when it silently rejected the file
	if receipt.Photo == "" || receipt.Photo == "[]" || receipt.Hash == "" {
		return nil, model.NewRemoteError("upload", 0, "host accepted no photo")
	}
	return &receipt, nil
}

// ConfirmUpload turns the receipt into a saved photo; each receipt is accepted once
func (u *Uploader) ConfirmUpload(ctx context.Context, groupID int64, receipt *model.UploadReceipt) (*model.SavedMedia, error) {
	if receipt == nil {
		return nil, errors.New("nil upload receipt provided")
	}
	if err := u.consume(u.receipts, receipt.Hash, ErrReceiptReused); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("group_id", strconv.FormatInt(groupID, 10))
	params.Set("photo", receipt.Photo)
	params.Set("server", receipt.Server.String())
	params.Set("hash", receipt.Hash)

	var saved []model.SavedMedia
	if err := u.host.Call(ctx, methodSavePhoto, params, &saved); err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return nil, model.NewRemoteError(methodSavePhoto, 0, "host saved no photo")
	}
	return &saved[0], nil
}

// consume marks key as used; copies of a token carry the same key and are rejected too
func (u *Uploader) consume(used map[string]struct{}, key string, reused error) error {
	if key == "" {
		return errors.New("empty upload token provided")
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := used[key]; ok {
		return reused
	}
	used[key] = struct{}{}
	return nil
}
