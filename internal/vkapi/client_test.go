package vkapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/UnendingLoop/ComicPoster/internal/model"
	"github.com/stretchr/testify/require"
)

const testToken = "s3cr3t-token"

func TestClient_Call_OK(t *testing.T) {
	var gotQuery url.Values
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"response":{"upload_url":"https://pu.example/upload"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", testToken, "5.131", srv.Client())
	params := url.Values{"group_id": {"7"}}

	var out model.UploadTarget
	require.NoError(t, c.Call(context.Background(), "photos.getWallUploadServer", params, &out))

	require.Equal(t, "/method/photos.getWallUploadServer", gotPath)
	require.Equal(t, testToken, gotQuery.Get("access_token"))
	require.Equal(t, "5.131", gotQuery.Get("v"))
	require.Equal(t, "7", gotQuery.Get("group_id"))
	require.Equal(t, "https://pu.example/upload", out.UploadURL)

	// caller's params are not touched
	require.Equal(t, url.Values{"group_id": {"7"}}, params)
}

func TestClient_Call_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		notErr   error
		wantMsg  string
		wantCode int
	}{
		{
			name:     "auth error with http 200",
			status:   http.StatusOK,
			body:     `{"error":{"error_code":5,"error_msg":"User authorization failed: invalid access_token (4)."}}`,
			wantErr:  model.ErrAuth,
			wantCode: 5,
		},
		{
			name:     "generic remote error with http 200",
			status:   http.StatusOK,
			body:     `{"error":{"error_code":100,"error_msg":"One of the parameters specified was missing or invalid"}}`,
			wantErr:  model.ErrRemote,
			notErr:   model.ErrAuth,
			wantMsg:  "One of the parameters specified was missing or invalid",
			wantCode: 100,
		},
		{
			name:    "string error",
			status:  http.StatusOK,
			body:    `{"error":"invalid hash","error_descr":"photo hash mismatch"}`,
			wantErr: model.ErrRemote,
			notErr:  model.ErrAuth,
			wantMsg: "invalid hash: photo hash mismatch",
		},
		{
			name:    "http error without payload",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			wantErr: model.ErrRemote,
			notErr:  model.ErrAuth,
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `{"response":`,
			wantErr: model.ErrRemote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, testToken, "5.131", srv.Client())
			var out map[string]any
			err := c.Call(context.Background(), "wall.post", url.Values{}, &out)

			require.ErrorIs(t, err, tt.wantErr)
			if tt.notErr != nil {
				require.NotErrorIs(t, err, tt.notErr)
			}
			if tt.wantMsg != "" {
				require.Contains(t, err.Error(), tt.wantMsg)
			}
			var mErr *model.Error
			require.ErrorAs(t, err, &mErr)
			if tt.wantCode != 0 {
				require.Equal(t, tt.wantCode, mErr.Code)
			}
		})
	}
}

func TestClient_Call_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(base, testToken, "5.131", http.DefaultClient)
	err := c.Call(context.Background(), "wall.post", nil, nil)

	require.ErrorIs(t, err, model.ErrTransport)
	require.NotContains(t, err.Error(), testToken)
}

func TestClient_Upload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ab c.png")
	require.NoError(t, os.WriteFile(path, []byte("image-bytes"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f, hdr, err := r.FormFile("photo")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "ab c.png" || string(data) != "image-bytes" {
			_, _ = w.Write([]byte(`{"error":"unexpected upload"}`))
			return
		}
		_, _ = w.Write([]byte(`{"server":123,"photo":"[{\"photo\":\"abc\"}]","hash":"h1"}`))
	}))
	defer srv.Close()

	c := NewClient("https://api.example", testToken, "5.131", srv.Client())

	var receipt model.UploadReceipt
	require.NoError(t, c.Upload(context.Background(), srv.URL+"/upload", "photo", path, &receipt))
	require.Equal(t, "123", receipt.Server.String())
	require.Equal(t, `[{"photo":"abc"}]`, receipt.Photo)
	require.Equal(t, "h1", receipt.Hash)
}

func TestClient_Upload_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"error_msg":"invalid token"}}`))
	}))
	defer srv.Close()
	c := NewClient("https://api.example", testToken, "5.131", srv.Client())

	path := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	var receipt model.UploadReceipt
	err := c.Upload(context.Background(), srv.URL, "photo", path, &receipt)
	require.ErrorIs(t, err, model.ErrAuth)
	require.Contains(t, err.Error(), "invalid token")

	err = c.Upload(context.Background(), srv.URL, "photo", filepath.Join(t.TempDir(), "gone.png"), &receipt)
	require.ErrorIs(t, err, model.ErrIO)
}
