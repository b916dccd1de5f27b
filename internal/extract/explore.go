// Package extract maps intercepted API payloads to normalized records.
package extract

import (
	"encoding/json"
	"fmt"

	"github.com/hashwatch/trendtap/internal/crawler"
)

// explorePayload mirrors the explore feed item-list response. Only the
// fields the extractor consumes are declared; everything else is ignored.
type explorePayload struct {
	ItemList []exploreItem `json:"itemList"`
}

type exploreItem struct {
	Stats struct {
		PlayCount int64 `json:"playCount"`
	} `json:"stats"`
	Contents []struct {
		TextExtra []struct {
			HashtagName string `json:"hashtagName"`
		} `json:"textExtra"`
	} `json:"contents"`
}

// ExploreRecords extracts one record per tag annotation found in the feed
// payload, each carrying the owning item's play count and the given
// category. Items without tag annotations are skipped; that is not an error.
func ExploreRecords(body json.RawMessage, category string) ([]crawler.ExploreRecord, error) {
	var payload explorePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode explore payload: %w", crawler.ErrMalformedPayload, err)
	}
	if payload.ItemList == nil {
		return nil, fmt.Errorf("%w: explore payload has no itemList", crawler.ErrMalformedPayload)
	}

	var records []crawler.ExploreRecord
	for _, item := range payload.ItemList {
		for _, content := range item.Contents {
			for _, tag := range content.TextExtra {
				if tag.HashtagName == "" {
					continue
				}
				records = append(records, crawler.ExploreRecord{
					Category:  category,
					Hashtag:   tag.HashtagName,
					PlayCount: item.Stats.PlayCount,
				})
			}
		}
	}
	return records, nil
}
