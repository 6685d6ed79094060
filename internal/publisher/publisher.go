// Package publisher posts saved media to the community wall
package publisher

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/UnendingLoop/ComicPoster/internal/model"
)

const methodWallPost = "wall.post"

type MethodCaller interface {
	Call(ctx context.Context, method string, params url.Values, out any) error
}

type Publisher struct {
	host MethodCaller
}

func NewPublisher(host MethodCaller) *Publisher {
	return &Publisher{host: host}
}

// Publish posts message with the media attached on behalf of the group
func (p *Publisher) Publish(ctx context.Context, groupID int64, message string, media *model.SavedMedia) (*model.PostResult, error) {
	if media == nil {
		return nil, errors.New("nil media provided to Publish")
	}

	params := url.Values{}
	params.Set("owner_id", strconv.FormatInt(-groupID, 10))
	params.Set("from_group", "1")
	params.Set("message", message)
	params.Set("attachments", media.Attachment())

	var res model.PostResult
	if err := p.host.Call(ctx, methodWallPost, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
