// Package format renders the bot's chat message layout.
package format

import (
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

var zone = loadZone("Africa/Kampala")

func loadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Message lays out a bold title, the content and a quoted footer.
func Message(title, content, footer string) string {
	return fmt.Sprintf("*%s*\n\n%s\n\n> *%s*", title, content, footer)
}

// Timestamp formats t in the bot's display zone.
func Timestamp(t time.Time) string {
	return t.In(zone).Format(timestampLayout)
}

// Uptime renders d as "1h 2m 3s".
func Uptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
