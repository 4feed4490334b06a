// Package resolve fetches live attachment metadata for decoded links.
// There is deliberately no cache: attachment fetch URLs are minted with a
// short expiry by the platform, so every resolution must be fresh.
package resolve

import (
	"context"
	"fmt"

	"github.com/purpleshop/filebridge/pkg/platform"
)

type Resolver struct {
	client platform.Client
}

func NewResolver(client platform.Client) *Resolver {
	return &Resolver{client: client}
}

// One resolves a single attachment. A deleted message and a live message
// missing the attachment id both return platform.ErrNotFound.
func (r *Resolver) One(ctx context.Context, channelID, messageID, attachmentID string) (platform.Attachment, error) {
	msg, err := r.client.Message(ctx, channelID, messageID)
	if err != nil {
		return platform.Attachment{}, err
	}
	for _, att := range msg.Attachments {
		if att.ID == attachmentID {
			return att, nil
		}
	}
	return platform.Attachment{}, fmt.Errorf("attachment %s: %w", attachmentID, platform.ErrNotFound)
}

// All resolves every attachment on a message, in the platform's order.
// A message with no attachments yields an empty slice, not an error.
func (r *Resolver) All(ctx context.Context, channelID, messageID string) ([]platform.Attachment, error) {
	msg, err := r.client.Message(ctx, channelID, messageID)
	if err != nil {
		return nil, err
	}
	return msg.Attachments, nil
}
