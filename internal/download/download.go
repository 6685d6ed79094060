// Package download fetches remote images into local files named after the url path
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/ComicPoster/internal/model"
	"github.com/UnendingLoop/ComicPoster/internal/runlog"
)

var ErrNoFileName = errors.New("url path has no file name")

type Fetcher struct {
	dir string
	hc  *http.Client
}

func NewFetcher(dir string, hc *http.Client) *Fetcher {
	return &Fetcher{dir: dir, hc: hc}
}

// FileNameFromURL returns the last path segment of rawURL, percent-decoded, without query or fragment
func FileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %q: %w", rawURL, err)
	}

	// u.Path is already decoded, so an encoded %2F turns into a separator here
	name := u.Path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	switch name {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", ErrNoFileName, rawURL)
	}
	return name, nil
}

// Download writes the body of imageURL verbatim into dir. It never removes what it created:
// if the file was created but writing failed, the file is returned along with the error
// and deleting it is up to the caller.
func (f *Fetcher) Download(ctx context.Context, imageURL string) (*model.LocalImageFile, error) {
	logger := runlog.FromContext(ctx)
	op := "GET " + imageURL

	name, err := FileNameFromURL(imageURL)
	if err != nil {
		return nil, model.NewRemoteError(op, 0, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, model.NewTransportError(op, err)
	}
	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, model.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	logger.Debug().Str("url", imageURL).Int("status", resp.StatusCode).Msg("image responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, model.NewRemoteError(op, resp.StatusCode, resp.Status)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, model.NewIOError("mkdir "+f.dir, err)
	}

	path := filepath.Join(f.dir, name)
	// O_EXCL: a pre-existing file with the same name is not ours to overwrite and later delete
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, model.NewIOError("create "+path, err)
	}
	local := &model.LocalImageFile{Path: path}

	body := &trackingReader{r: resp.Body}
	_, copyErr := io.Copy(file, body)
	closeErr := file.Close()

	switch {
	case copyErr != nil && body.err != nil:
		return local, model.NewTransportError(op, copyErr)
	case copyErr != nil:
		return local, model.NewIOError("write "+path, copyErr)
	case closeErr != nil:
		return local, model.NewIOError("close "+path, closeErr)
	}

	return local, nil
}

// trackingReader remembers read-side failures to tell them apart from write-side ones
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
