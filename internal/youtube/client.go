// Package youtube wraps the kkdai youtube client: video metadata lookup
// and stream downloads with quality/format/resolution selection.
package youtube

import (
	"context"
	"time"

	ytdl "github.com/kkdai/youtube/v2"
)

// Client abstracts YouTube video operations.
type Client struct {
	client ytdl.Client
}

// NewClient creates a new YouTube client.
func NewClient() *Client {
	return &Client{client: ytdl.Client{}}
}

// VideoInfo is the metadata of one video.
type VideoInfo struct {
	ID       string
	Title    string
	Author   string
	Duration time.Duration
}

// GetVideo fetches video metadata by URL or ID.
func (c *Client) GetVideo(ctx context.Context, url string) (*VideoInfo, error) {
	video, err := c.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &VideoInfo{
		ID:       video.ID,
		Title:    video.Title,
		Author:   video.Author,
		Duration: video.Duration,
	}, nil
}

// ResolveDuration fetches the true duration of a video. Used when the
// search results page carried no parsable length for a result.
func (c *Client) ResolveDuration(ctx context.Context, url string) (time.Duration, error) {
	info, err := c.GetVideo(ctx, url)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}
