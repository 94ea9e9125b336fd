package content

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// OGImage returns the absolute og:image URL of page, or "" when the page
// declares none.
func (c *Client) OGImage(ctx context.Context, page string) (string, error) {
	body, err := c.get(ctx, page, nil)
	if err != nil {
		return "", err
	}

	image := findOGImage(bytes.NewReader(body))
	if image == "" {
		return "", nil
	}

	base, err := url.Parse(page)
	if err != nil {
		return image, nil
	}
	ref, err := url.Parse(image)
	if err != nil {
		return "", nil
	}
	return base.ResolveReference(ref).String(), nil
}

func findOGImage(r io.Reader) string {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data == "body" {
				return ""
			}
			if tok.Data != "meta" {
				continue
			}

			var property, content string
			for _, attr := range tok.Attr {
				switch strings.ToLower(attr.Key) {
				case "property", "name":
					property = strings.ToLower(attr.Val)
				case "content":
					content = strings.TrimSpace(attr.Val)
				}
			}
			if property == "og:image" && content != "" {
				return content
			}
		}
	}
}
