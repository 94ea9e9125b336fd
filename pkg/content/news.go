package content

import (
	"context"
	"fmt"
)

// Feeds served by the news API.
const (
	FeedNews   = "lnw"
	FeedGossip = "gossiplankanews"
)

type Article struct {
	Title string
	Desc  string
	Date  string
	Link  string
}

type Score struct {
	Title string
	Score string
	ToWin string
	CRR   string
	Link  string
}

type newsResponse struct {
	Status bool `json:"status"`
	Result struct {
		Title string `json:"title"`
		Desc  string `json:"desc"`
		Date  string `json:"date"`
		Link  string `json:"link"`
	} `json:"result"`
}

// News returns the latest article of feed.
func (c *Client) News(ctx context.Context, feed string) (Article, error) {
	var resp newsResponse
	if err := c.getJSON(ctx, c.opts.NewsBaseURL+"/news/"+feed, nil, &resp); err != nil {
		return Article{}, err
	}

	a := Article{
		Title: c.plain(resp.Result.Title),
		Desc:  c.plain(resp.Result.Desc),
		Date:  c.plain(resp.Result.Date),
		Link:  resp.Result.Link,
	}
	if !resp.Status || a.Title == "" || a.Desc == "" || a.Link == "" {
		return Article{}, fmt.Errorf("%w: incomplete %s article", ErrInvalidResponse, feed)
	}
	return a, nil
}

type cricketResponse struct {
	Status bool `json:"status"`
	Result struct {
		Title string `json:"title"`
		Score string `json:"score"`
		ToWin string `json:"to_win"`
		CRR   string `json:"crr"`
		Link  string `json:"link"`
	} `json:"result"`
}

// Cricket returns the current live score.
func (c *Client) Cricket(ctx context.Context) (Score, error) {
	var resp cricketResponse
	if err := c.getJSON(ctx, c.opts.NewsBaseURL+"/news/cricbuzz", nil, &resp); err != nil {
		return Score{}, err
	}

	r := resp.Result
	if !resp.Status || r.Title == "" || r.Score == "" || r.ToWin == "" || r.CRR == "" || r.Link == "" {
		return Score{}, fmt.Errorf("%w: incomplete cricket score", ErrInvalidResponse)
	}
	return Score{
		Title: c.plain(r.Title),
		Score: c.plain(r.Score),
		ToWin: c.plain(r.ToWin),
		CRR:   c.plain(r.CRR),
		Link:  r.Link,
	}, nil
}
