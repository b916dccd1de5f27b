package extract

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hashwatch/trendtap/internal/crawler"
)

// hashtagPayload mirrors the challenge-detail response. The video count is
// string-encoded in statsV2.
type hashtagPayload struct {
	ChallengeInfo struct {
		StatsV2 struct {
			VideoCount string `json:"videoCount"`
		} `json:"statsV2"`
	} `json:"challengeInfo"`
}

// HashtagRecord extracts the cumulative video count for one hashtag from a
// challenge-detail payload.
func HashtagRecord(body json.RawMessage, hashtag string) (crawler.HashtagRecord, error) {
	var payload hashtagPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return crawler.HashtagRecord{}, fmt.Errorf("%w: decode hashtag payload: %w", crawler.ErrMalformedPayload, err)
	}

	raw := payload.ChallengeInfo.StatsV2.VideoCount
	if raw == "" {
		return crawler.HashtagRecord{}, fmt.Errorf("%w: missing challengeInfo.statsV2.videoCount", crawler.ErrMalformedPayload)
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return crawler.HashtagRecord{}, fmt.Errorf("%w: parse videoCount %q: %w", crawler.ErrMalformedPayload, raw, err)
	}

	return crawler.HashtagRecord{
		Hashtag:    hashtag,
		VideoCount: count,
	}, nil
}
