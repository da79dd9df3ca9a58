package devino

import (
	"context"

	"github.com/devinotele/pushsdk-go/internal/payload"
)

// Attachment is a downloaded media file ready to attach to the presented
// notification. Kind is "image", "audio" or "video", inferred from the URL
// extension with image as the fallback.
type Attachment struct {
	Path string
	Ext  string
	Kind string
}

// HandleNotificationContent implements the rich-content path of a
// notification service extension. When the payload references media, it is
// downloaded within the budget of ctx and handed to mutated; on any
// failure, or when no media is referenced, unmodified runs instead so the
// notification is always delivered. Silent pushes skip media handling and
// only acknowledge delivery.
func (c *Client) HandleNotificationContent(ctx context.Context, data []byte, mutated func(Attachment), unmodified func()) {
	c.TrackReceivedNotification(data)

	n, err := payload.Decode(data)
	if err != nil || n.Silent || n.MediaURL == "" {
		unmodified()
		return
	}
	att, err := c.fetcher.Fetch(ctx, n.MediaURL)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", n.MediaURL).Msg("attachment download failed, delivering unmodified")
		unmodified()
		return
	}
	mutated(Attachment{Path: att.Path, Ext: att.Ext, Kind: string(att.Kind)})
}
