package content

import (
	"context"
	"fmt"
	"strings"
)

type APOD struct {
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	Date        string `json:"date"`
	URL         string `json:"url"`
	MediaType   string `json:"media_type"`
	Copyright   string `json:"copyright"`
}

// APOD returns NASA's astronomy picture of the day.
func (c *Client) APOD(ctx context.Context) (APOD, error) {
	var apod APOD
	params := map[string]string{"api_key": c.opts.NASAAPIKey}
	if err := c.getJSON(ctx, c.opts.NASABaseURL+"/planetary/apod", params, &apod); err != nil {
		return APOD{}, err
	}
	if apod.Title == "" || apod.Explanation == "" || apod.Date == "" || apod.URL == "" {
		return APOD{}, fmt.Errorf("%w: incomplete apod", ErrInvalidResponse)
	}
	apod.Copyright = strings.TrimSpace(apod.Copyright)
	return apod, nil
}

type TikTokVideo struct {
	Title    string
	Likes    string
	Comments string
	Shares   string
	Author   string
	Username string
	URL      string
}

type tiktokResponse struct {
	Status bool `json:"status"`
	Data   *struct {
		Title   string      `json:"title"`
		Like    interface{} `json:"like"`
		Comment interface{} `json:"comment"`
		Share   interface{} `json:"share"`
		Author  struct {
			Nickname string `json:"nickname"`
			Username string `json:"username"`
		} `json:"author"`
		Meta struct {
			Media []struct {
				Type string `json:"type"`
				Org  string `json:"org"`
			} `json:"media"`
		} `json:"meta"`
	} `json:"data"`
}

func counter(v interface{}) string {
	if v == nil {
		return "0"
	}
	return fmt.Sprint(v)
}

// TikTok resolves a TikTok post link to its video.
func (c *Client) TikTok(ctx context.Context, link string) (TikTokVideo, error) {
	var resp tiktokResponse
	params := map[string]string{"url": link}
	if err := c.getJSON(ctx, c.opts.TikTokBaseURL+"/download/tiktok", params, &resp); err != nil {
		return TikTokVideo{}, err
	}
	if !resp.Status || resp.Data == nil {
		return TikTokVideo{}, fmt.Errorf("%w: tiktok lookup failed", ErrInvalidResponse)
	}

	d := resp.Data
	video := TikTokVideo{
		Title:    c.plain(d.Title),
		Likes:    counter(d.Like),
		Comments: counter(d.Comment),
		Shares:   counter(d.Share),
		Author:   d.Author.Nickname,
		Username: d.Author.Username,
	}
	for _, m := range d.Meta.Media {
		if m.Type == "video" && m.Org != "" {
			video.URL = m.Org
			break
		}
	}
	if video.URL == "" {
		return TikTokVideo{}, ErrNoMedia
	}
	return video, nil
}

type facebookResponse struct {
	Result struct {
		SD string `json:"sd"`
		HD string `json:"hd"`
	} `json:"result"`
}

// Facebook resolves a Facebook video link to a direct SD video URL.
func (c *Client) Facebook(ctx context.Context, link string) (string, error) {
	var resp facebookResponse
	params := map[string]string{"url": link}
	if err := c.getJSON(ctx, c.opts.NewsBaseURL+"/download/fbdown", params, &resp); err != nil {
		return "", err
	}
	if resp.Result.SD != "" {
		return resp.Result.SD, nil
	}
	if resp.Result.HD != "" {
		return resp.Result.HD, nil
	}
	return "", ErrNoMedia
}
