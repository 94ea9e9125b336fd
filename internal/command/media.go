package command

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gdbrns/go-whatsapp-session-bot/pkg/ai"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/format"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
)

var facebookLink = regexp.MustCompile(`(?i)(facebook\.com|fb\.watch)`)

const apodSummaryLength = 200

func (d *Dispatcher) news(feed string, title string) Handler {
	return func(ctx context.Context, req *Request) error {
		logger := log.Session(req.Number, "command."+req.Name)
		article, err := d.opts.Content.News(ctx, feed)
		if err != nil {
			logger.WithError(err).Warn("news fetch failed")
			return req.Reply(ctx, "⚠️ "+req.Name+" fetch failed.")
		}

		caption := format.Message(title,
			fmt.Sprintf("📢 *%s*\n\n%s\n\n🕒 *Date*: %s\n🌐 *Link*: %s", article.Title, article.Desc, article.Date, article.Link),
			d.opts.BotName)

		if image := d.pageImage(ctx, article.Link); image != nil {
			err := req.ReplyImage(ctx, image, caption)
			if err == nil {
				return nil
			}
			logger.WithError(err).Warn("image send failed, falling back to text")
		}
		return req.Reply(ctx, caption)
	}
}

// pageImage downloads the og:image of page, or returns nil.
func (d *Dispatcher) pageImage(ctx context.Context, page string) []byte {
	src, err := d.opts.Content.OGImage(ctx, page)
	if err != nil || src == "" {
		return nil
	}
	image, err := d.opts.Content.Download(ctx, src)
	if err != nil {
		return nil
	}
	return image
}

func (d *Dispatcher) cricket(ctx context.Context, req *Request) error {
	score, err := d.opts.Content.Cricket(ctx)
	if err != nil {
		log.Session(req.Number, "command.cricket").WithError(err).Warn("cricket fetch failed")
		return req.Reply(ctx, "⚠️ cricket fetch failed.")
	}
	body := fmt.Sprintf("📢 *%s*\n\n🏆 *Score*: %s\n🎯 *To Win*: %s\n📈 *Current Run Rate*: %s\n\n🌐 *Link*: %s",
		score.Title, score.Score, score.ToWin, score.CRR, score.Link)
	return req.Reply(ctx, format.Message("🏏 CRICKET NEWS 🏏", body, d.opts.BotName))
}

func (d *Dispatcher) nasa(ctx context.Context, req *Request) error {
	logger := log.Session(req.Number, "command.nasa")
	apod, err := d.opts.Content.APOD(ctx)
	if err != nil {
		logger.WithError(err).Warn("apod fetch failed")
		return req.Reply(ctx, "⚠️ nasa fetch failed.")
	}

	summary := []rune(apod.Explanation)
	explanation := apod.Explanation
	if len(summary) > apodSummaryLength {
		explanation = string(summary[:apodSummaryLength]) + "..."
	}
	credit := ""
	if apod.Copyright != "" {
		credit = "\n© " + apod.Copyright
	}
	caption := format.Message("🌌 NASA NEWS",
		fmt.Sprintf("🌠 *%s*\n\n%s\n\n📆 *Date*: %s%s", apod.Title, explanation, apod.Date, credit),
		d.opts.BotName)

	if apod.MediaType == "image" {
		image, err := d.opts.Content.Download(ctx, apod.URL)
		if err == nil {
			return req.ReplyImage(ctx, image, caption)
		}
		logger.WithError(err).Warn("apod image download failed")
	}
	return req.Reply(ctx, caption+"\n\n🔗 "+apod.URL)
}

func (d *Dispatcher) tiktok(ctx context.Context, req *Request) error {
	link := req.Query
	if link == "" {
		return req.Reply(ctx, "📌 Please provide a TikTok video link.")
	}
	if !strings.Contains(link, "tiktok.com") {
		return req.Reply(ctx, "❌ Invalid TikTok link.")
	}

	logger := log.Session(req.Number, "command.tiktok")
	if err := req.Reply(ctx, "⏳ Downloading video, please wait..."); err != nil {
		logger.WithError(err).Warn("failed to send progress reply")
	}

	video, err := d.opts.Content.TikTok(ctx, link)
	if err != nil {
		logger.WithError(err).Warn("tiktok lookup failed")
		return req.Reply(ctx, "❌ TikTok video not found.")
	}
	data, err := d.opts.Content.Download(ctx, video.URL)
	if err != nil {
		logger.WithError(err).Warn("tiktok download failed")
		return req.Reply(ctx, "❌ An error occurred: "+err.Error())
	}

	caption := fmt.Sprintf("🎵 *TIKTOK DOWNLOADER*\n\n👤 *User:* %s (@%s)\n📖 *Title:* %s\n👍 *Likes:* %s\n💬 *Comments:* %s\n🔁 *Shares:* %s",
		video.Author, video.Username, video.Title, video.Likes, video.Comments, video.Shares)
	return req.ReplyVideo(ctx, data, caption)
}

func (d *Dispatcher) facebook(ctx context.Context, req *Request) error {
	link := req.Query
	if link == "" || !facebookLink.MatchString(link) {
		return req.Reply(ctx, "🧩 *Please provide a valid Facebook video link.*")
	}

	logger := log.Session(req.Number, "command.fb")
	if err := req.Conn.React(ctx, req.Msg, "⬇️"); err != nil {
		logger.WithError(err).Debug("reaction failed")
	}

	src, err := d.opts.Content.Facebook(ctx, link)
	if err == nil {
		var data []byte
		if data, err = d.opts.Content.Download(ctx, src); err == nil {
			err = req.ReplyVideo(ctx, data, "> "+d.opts.BotName)
		}
	}
	if err != nil {
		logger.WithError(err).Warn("facebook download failed")
		return req.Reply(ctx, "*❌ Error downloading video.*")
	}

	if err := req.Conn.React(ctx, req.Msg, "✔️"); err != nil {
		logger.WithError(err).Debug("reaction failed")
	}
	return nil
}

func (d *Dispatcher) askAI(ctx context.Context, req *Request) error {
	if req.Query == "" {
		return req.Reply(ctx, fmt.Sprintf("🤖 Ask me anything, e.g. %sai what is the capital of Sri Lanka?", req.Settings.Prefix))
	}

	if d.opts.AI == nil {
		return req.Reply(ctx, "❌ AI is not configured on this bot.")
	}
	answer, err := d.opts.AI.Text(ctx, req.Query)
	switch {
	case errors.Is(err, ai.ErrDisabled):
		return req.Reply(ctx, "❌ AI is not configured on this bot.")
	case err != nil:
		log.Session(req.Number, "command.ai").WithError(err).Warn("gemini request failed")
		return req.Reply(ctx, "❌ Error processing request.")
	}
	return req.Reply(ctx, format.Message("🤖 "+d.opts.BotName+" AI", answer, d.opts.BotName))
}

func (d *Dispatcher) imageAI(ctx context.Context, req *Request) error {
	if req.Query == "" {
		return req.Reply(ctx, "🎨 *Please provide a prompt to generate an AI image.*")
	}
	if d.opts.AI == nil {
		return req.Reply(ctx, "❌ AI is not configured on this bot.")
	}

	logger := log.Session(req.Number, "command.aiimg")
	if err := req.Reply(ctx, "🧠 *Creating your AI image...*"); err != nil {
		logger.WithError(err).Warn("failed to send progress reply")
	}

	image, err := d.opts.AI.Image(ctx, req.Query)
	switch {
	case errors.Is(err, ai.ErrDisabled):
		return req.Reply(ctx, "❌ AI is not configured on this bot.")
	case err != nil:
		logger.WithError(err).Warn("image generation failed")
		return req.Reply(ctx, "❗ *An error occurred while generating the image.*")
	}
	return req.ReplyImage(ctx, image, "🧠 *"+d.opts.BotName+" AI IMAGE*\n\n📌 Prompt: "+req.Query)
}
