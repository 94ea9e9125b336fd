// Package content fetches the third-party news, media and astronomy data
// used by the chat commands.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gregjones/httpcache"
	"github.com/microcosm-cc/bluemonday"

	"github.com/gdbrns/go-whatsapp-session-bot/pkg/retry"
)

var (
	ErrInvalidResponse = errors.New("invalid response from content api")
	ErrNoMedia         = errors.New("no downloadable media found")
	ErrTooLarge        = errors.New("media exceeds the size limit")
)

const maxMediaBytes = 64 << 20

// Options configures a Client. Empty base URLs fall back to the public
// endpoints.
type Options struct {
	NewsBaseURL   string
	TikTokBaseURL string
	NASABaseURL   string
	NASAAPIKey    string
	Timeout       time.Duration
	Attempts      int
	RetryBase     time.Duration
}

type Client struct {
	http     *resty.Client
	opts     Options
	policy   retry.Policy
	stripper *bluemonday.Policy
}

func New(opts Options) *Client {
	if opts.NewsBaseURL == "" {
		opts.NewsBaseURL = "https://suhas-bro-api.vercel.app"
	}
	if opts.TikTokBaseURL == "" {
		opts.TikTokBaseURL = "https://delirius-apiofc.vercel.app"
	}
	if opts.NASABaseURL == "" {
		opts.NASABaseURL = "https://api.nasa.gov"
	}
	if opts.NASAAPIKey == "" {
		opts.NASAAPIKey = "DEMO_KEY"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 2
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = time.Second
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetTransport(httpcache.NewMemoryCacheTransport()).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; WhatsAppSessionBot/1.0)")

	return &Client{
		http:     client,
		opts:     opts,
		policy:   retry.Policy{Attempts: opts.Attempts, Base: opts.RetryBase},
		stripper: bluemonday.StrictPolicy(),
	}
}

// get fetches endpoint and returns the response body. Server errors are
// retried, client errors are not.
func (c *Client) get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(endpoint)
		if err != nil {
			return err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("%s: HTTP %d", endpoint, resp.StatusCode())
		}
		if resp.IsError() {
			return retry.Permanent(fmt.Errorf("%s: HTTP %d", endpoint, resp.StatusCode()))
		}
		body = resp.Body()
		return nil
	})
	return body, err
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params map[string]string, out interface{}) error {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// plain strips markup and entities from API supplied text.
func (c *Client) plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.stripper.Sanitize(s)))
}

// Download fetches a media file.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("download %q: %w", rawURL, err)
	}
	body, err := c.get(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, ErrNoMedia
	}
	if len(body) > maxMediaBytes {
		return nil, ErrTooLarge
	}
	return body, nil
}
