// internal/models/content.go
package models

import "time"

// Content types
const (
	ContentTypeImage    = "image"
	ContentTypeVideo    = "video"
	ContentTypeReels    = "reels"
	ContentTypeCarousel = "carousel"
	ContentTypeStory    = "story"
)

// Media kinds
const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)

// MediaRef points at a media object held by the object-storage collaborator.
type MediaRef struct {
	Kind              string `json:"kind"` // "image" or "video"
	Location          string `json:"location"`
	ThumbnailLocation string `json:"thumbnailLocation,omitempty"`
}

// PublishFailure is one structured entry of a content item's publishError.
type PublishFailure struct {
	Platform  string `json:"platform"`
	AccountID string `json:"account"`
	Message   string `json:"message"`
}

// ContentItem is the publishable subset of a content record.
//
// PublishedAt is non-nil iff the most recent publish attempt had zero
// failures across all resolved channels for that attempt; a later partial
// re-attempt never erases a prior full success.
type ContentItem struct {
	ID             string           `json:"id"`
	ClientID       string           `json:"clientId"`
	ContentType    string           `json:"contentType"`
	Caption        string           `json:"caption"`
	TargetChannels []string         `json:"targetChannels"`
	MediaRefs      []MediaRef       `json:"mediaRefs"`
	PublishedAt    *time.Time       `json:"publishedAt,omitempty"`
	PublishError   []PublishFailure `json:"publishError,omitempty"`
}

// PublishSuccess is one succeeded (item, account) pair in a report.
type PublishSuccess struct {
	Platform  string `json:"platform"`
	AccountID string `json:"account"`
	RemoteID  string `json:"remoteId"`
}

// PublishReport aggregates per-channel outcomes of one publish run.
type PublishReport struct {
	ContentItemID string           `json:"contentItemId"`
	Succeeded     []PublishSuccess `json:"results"`
	Failed        []PublishFailure `json:"errors"`
}

// AllSucceeded reports whether every resolved channel succeeded and there
// was at least one channel to publish to.
func (r *PublishReport) AllSucceeded() bool {
	return len(r.Failed) == 0 && len(r.Succeeded) > 0
}
