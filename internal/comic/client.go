// Package comic provides a client for the read-only comic archive (xkcd JSON API)
package comic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"

	"github.com/UnendingLoop/ComicPoster/internal/model"
	"github.com/UnendingLoop/ComicPoster/internal/runlog"
)

const infoFile = "info.0.json"

type Client struct {
	baseURL  string
	hc       *http.Client
	randIntN func(n int) int // returns value in [0, n)
}

type Option func(*Client)

// WithRandom replaces the source of the random draw; fn must return a value in [0, n)
func WithRandom(fn func(n int) int) Option {
	return func(c *Client) { c.randIntN = fn }
}

func NewClient(baseURL string, hc *http.Client, opts ...Option) *Client {
	c := &Client{baseURL: baseURL, hc: hc, randIntN: rand.Intn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchLatestIndex returns the number of the newest comic in the archive
func (c *Client) FetchLatestIndex(ctx context.Context) (int, error) {
	var latest model.Comic
	if _, err := c.getJSON(ctx, c.baseURL+"/"+infoFile, &latest); err != nil {
		return 0, err
	}
	if latest.Number < 1 {
		return 0, model.NewRemoteError("GET "+infoFile, 0, fmt.Sprintf("archive reported invalid latest number %d", latest.Number))
	}
	return latest.Number, nil
}

func (c *Client) FetchComic(ctx context.Context, number int) (*model.Comic, error) {
	op := "GET " + strconv.Itoa(number) + "/" + infoFile
	if number < 1 {
		return nil, model.NewNotFoundError(op, fmt.Sprintf("comic %d does not exist", number))
	}

	var comic model.Comic
	status, err := c.getJSON(ctx, c.baseURL+"/"+strconv.Itoa(number)+"/"+infoFile, &comic)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, model.NewNotFoundError(op, fmt.Sprintf("comic %d does not exist", number))
		}
		return nil, err
	}

	u, err := url.Parse(comic.ImageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, model.NewRemoteError(op, 0, fmt.Sprintf("comic %d has malformed image url %q", number, comic.ImageURL))
	}
	if comic.Number == 0 {
		comic.Number = number
	}
	return &comic, nil
}

// FetchRandomComic draws a number uniformly from [1, latest]; no retries, sub-call errors are returned as is
func (c *Client) FetchRandomComic(ctx context.Context) (*model.Comic, error) {
	latest, err := c.FetchLatestIndex(ctx)
	if err != nil {
		return nil, err
	}
	return c.FetchComic(ctx, c.randIntN(latest)+1)
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) (int, error) {
	logger := runlog.FromContext(ctx)
	op := "GET " + rawURL

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, model.NewTransportError(op, err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, model.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	logger.Debug().Str("url", rawURL).Int("status", resp.StatusCode).Msg("archive responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, model.NewRemoteError(op, resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, model.NewTransportError(op, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, model.NewRemoteError(op, resp.StatusCode, "malformed archive response: "+err.Error())
	}
	return resp.StatusCode, nil
}
