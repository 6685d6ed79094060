package media

import (
	"context"
	"net/url"
)

type mockHost struct {
	callFn   func(ctx context.Context, method string, params url.Values, out any) error
	uploadFn func(ctx context.Context, uploadURL, field, path string, out any) error
}

func (m *mockHost) Call(ctx context.Context, method string, params url.Values, out any) error {
	return m.callFn(ctx, method, params, out)
}

func (m *mockHost) Upload(ctx context.Context, uploadURL, field, path string, out any) error {
	return m.uploadFn(ctx, uploadURL, field, path, out)
}
