package services

import (
	"slices"
	"strings"

	"github.com/threesixtyfive/server/internal/models"
)

// SelectBestPhoto returns the most liked candidate. Ties go to the earliest
// post, then to the lowest remote id, so repeated runs over the same feed
// always pick the same item. The input slice is left untouched.
func SelectBestPhoto(candidates []*models.MediaItem) *models.MediaItem {
	if len(candidates) == 0 {
		return nil
	}

	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, compareCandidates)
	return ranked[0]
}

func compareCandidates(a, b *models.MediaItem) int {
	if a.LikeCount != b.LikeCount {
		// descending
		if a.LikeCount > b.LikeCount {
			return -1
		}
		return 1
	}
	if a.RawTimestamp != b.RawTimestamp {
		if a.RawTimestamp < b.RawTimestamp {
			return -1
		}
		return 1
	}
	return strings.Compare(a.RemoteID, b.RemoteID)
}
