package models

// MediaItem is one entry of the remote media feed. It only lives for the
// duration of a reconcile run.
type MediaItem struct {
	RemoteID     string `json:"remoteId"`
	RawTimestamp int64  `json:"rawTimestamp"`
	LikeCount    int    `json:"likeCount"`
	ThumbnailURL string `json:"thumbnailUrl"`
	StandardURL  string `json:"standardUrl"`
	PermalinkURL string `json:"permalinkUrl"`
}
