// Package vkapi provides the transport to the social host: generic method calls and raw multipart uploads.
// Any response carrying an "error" key is a failure, whatever the HTTP status says.
package vkapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/ComicPoster/internal/model"
	"github.com/UnendingLoop/ComicPoster/internal/runlog"
)

const redacted = "REDACTED"

// host error codes that mean the token has to be rotated
var authErrorCodes = map[int]bool{
	5:  true, // user authorization failed
	27: true, // group authorization failed
	28: true, // application authorization failed
}

type Client struct {
	baseURL string
	token   string
	version string
	hc      *http.Client
}

func NewClient(baseURL, token, version string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, version: version, hc: hc}
}

// Call invokes GET <base>/method/<method>. params is never modified: a fresh query is built per call.
// The "response" field is decoded into out when out is not nil.
func (c *Client) Call(ctx context.Context, method string, params url.Values, out any) error {
	query := make(url.Values, len(params)+2)
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}
	query.Set("access_token", c.token)
	query.Set("v", c.version)

	rawURL := c.baseURL + "/method/" + method + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return model.NewTransportError(method, c.redact(err))
	}

	status, body, err := c.do(ctx, method, req)
	if err != nil {
		return err
	}

	var env struct {
		Response json.RawMessage `json:"response"`
	}
	if err := decodeHostResponse(method, status, body, &env); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return model.NewRemoteError(method, status, "malformed response: "+err.Error())
	}
	return nil
}

// Upload posts the file at path as multipart field to uploadURL and decodes the bare JSON answer into out
func (c *Client) Upload(ctx context.Context, uploadURL, field, path string, out any) error {
	const op = "upload"

	file, err := os.Open(path)
	if err != nil {
		return model.NewIOError("open "+path, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return model.NewIOError("read "+path, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return model.NewIOError("read "+path, err)
	}
	if err := mw.Close(); err != nil {
		return model.NewIOError("read "+path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return model.NewTransportError(op, c.redact(err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	status, body, err := c.do(ctx, op, req)
	if err != nil {
		return err
	}
	if err := decodeHostResponse(op, status, body, out); err != nil {
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, op string, req *http.Request) (int, []byte, error) {
	logger := runlog.FromContext(ctx)

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, model.NewTransportError(op, c.redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, model.NewTransportError(op, c.redact(err))
	}

	logger.Debug().
		Str("op", op).
		Str("host", req.URL.Host).
		Int("status", resp.StatusCode).
		Msg("host responded")
	return resp.StatusCode, body, nil
}

// redact strips the token from errors that embed the request url
func (c *Client) redact(err error) error {
	var uErr *url.Error
	if errors.As(err, &uErr) {
		uErr.URL = c.redactString(uErr.URL)
	}
	if c.token == "" || !strings.Contains(err.Error(), c.token) {
		return err
	}
	return errors.New(c.redactString(err.Error()))
}

func (c *Client) redactString(s string) string {
	if c.token == "" {
		return s
	}
	s = strings.ReplaceAll(s, url.QueryEscape(c.token), redacted)
	return strings.ReplaceAll(s, c.token, redacted)
}

//--------------------

type apiError struct {
	Code int    `json:"error_code"`
	Msg  string `json:"error_msg"`
}

// decodeHostResponse detects the error payload structurally and only then looks at the HTTP status
func decodeHostResponse(op string, status int, body []byte, out any) error {
	var probe map[string]json.RawMessage
	jsonErr := json.Unmarshal(body, &probe)

	if raw, ok := probe["error"]; ok && jsonErr == nil {
		return classify(op, parseAPIError(raw, probe))
	}
	if status < 200 || status > 299 {
		return model.NewRemoteError(op, status, http.StatusText(status))
	}
	if jsonErr != nil {
		return model.NewRemoteError(op, status, "malformed response: "+jsonErr.Error())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return model.NewRemoteError(op, status, "malformed response: "+err.Error())
	}
	return nil
}

// parseAPIError accepts both {"error":{"error_code":..,"error_msg":..}} and {"error":"msg","error_descr":".."}
func parseAPIError(raw json.RawMessage, probe map[string]json.RawMessage) apiError {
	var ae apiError
	if err := json.Unmarshal(raw, &ae); err == nil && (ae.Msg != "" || ae.Code != 0) {
		return ae
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		ae.Msg = msg
		var descr string
		if d, ok := probe["error_descr"]; ok && json.Unmarshal(d, &descr) == nil && descr != "" {
			ae.Msg = msg + ": " + descr
		}
		return ae
	}

	ae.Msg = string(raw)
	return ae
}

func classify(op string, ae apiError) error {
	msg := ae.Msg
	if msg == "" {
		msg = fmt.Sprintf("host error %d", ae.Code)
	}
	if authErrorCodes[ae.Code] || looksLikeAuth(msg) {
		return model.NewAuthError(op, ae.Code, msg)
	}
	return model.NewRemoteError(op, ae.Code, msg)
}

func looksLikeAuth(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "token") || strings.Contains(m, "authorization failed")
}
