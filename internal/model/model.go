// Package model provides data-structs shared by the comic posting pipeline
package model

import (
	"encoding/json"
	"fmt"
)

type State string

const (
	StateIdle          State = "idle"
	StateFetchingComic State = "fetching_comic"
	StateDownloading   State = "downloading"
	StatePreparing     State = "preparing"
	StateUploading     State = "uploading"
	StateConfirming    State = "confirming"
	StatePublishing    State = "publishing"
	StateCleanup       State = "cleanup"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
)

// Terminal reports whether no further transitions are possible from s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

//---------------------

// Comic - metadata of a single archive entry
type Comic struct {
	Number   int    `json:"num"`
	ImageURL string `json:"img"`
	Caption  string `json:"alt"`
}

// LocalImageFile - downloaded image, owned by the pipeline until cleanup
type LocalImageFile struct {
	Path string
}

type UploadTarget struct {
	UploadURL string `json:"upload_url"`
}

// UploadReceipt - opaque tokens returned by the raw upload, consumed only by the save call
type UploadReceipt struct {
	Server json.Number `json:"server"`
	Photo  string      `json:"photo"`
	Hash   string      `json:"hash"`
}

type SavedMedia struct {
	OwnerID int64 `json:"owner_id"`
	MediaID int64 `json:"id"`
}

// Attachment renders the reference the host expects in a wall post
func (m SavedMedia) Attachment() string {
	return fmt.Sprintf("photo%d_%d", m.OwnerID, m.MediaID)
}

type PostResult struct {
	PostID int64 `json:"post_id"`
}
