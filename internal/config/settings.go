package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"
)

// Settings are the effective per-number bot settings.
type Settings struct {
	Prefix         string
	AutoViewStatus bool
	AutoLikeStatus bool
	AutoRecording  bool
	AutoLikeEmoji  []string
}

// Overrides is the persisted per-number configuration. Nil fields fall back
// to the process defaults.
type Overrides struct {
	Prefix         *string  `json:"prefix,omitempty"`
	AutoViewStatus *bool    `json:"autoViewStatus,omitempty"`
	AutoLikeStatus *bool    `json:"autoLikeStatus,omitempty"`
	AutoRecording  *bool    `json:"autoRecording,omitempty"`
	AutoLikeEmoji  []string `json:"autoLikeEmoji,omitempty"`
}

var ErrInvalidConfig = errors.New("invalid config")

// Apply layers overrides on top of s.
func (s Settings) Apply(o Overrides) Settings {
	out := s
	out.AutoLikeEmoji = append([]string(nil), s.AutoLikeEmoji...)
	if o.Prefix != nil {
		out.Prefix = *o.Prefix
	}
	if o.AutoViewStatus != nil {
		out.AutoViewStatus = *o.AutoViewStatus
	}
	if o.AutoLikeStatus != nil {
		out.AutoLikeStatus = *o.AutoLikeStatus
	}
	if o.AutoRecording != nil {
		out.AutoRecording = *o.AutoRecording
	}
	if len(o.AutoLikeEmoji) > 0 {
		out.AutoLikeEmoji = append([]string(nil), o.AutoLikeEmoji...)
	}
	return out
}

// Overrides expresses s as a fully populated override set.
func (s Settings) Overrides() Overrides {
	prefix, view, like, recording := s.Prefix, s.AutoViewStatus, s.AutoLikeStatus, s.AutoRecording
	return Overrides{
		Prefix:         &prefix,
		AutoViewStatus: &view,
		AutoLikeStatus: &like,
		AutoRecording:  &recording,
		AutoLikeEmoji:  append([]string(nil), s.AutoLikeEmoji...),
	}
}

func (s Settings) Validate() error {
	return s.Overrides().Validate()
}

func (o Overrides) IsEmpty() bool {
	return o.Prefix == nil && o.AutoViewStatus == nil && o.AutoLikeStatus == nil &&
		o.AutoRecording == nil && len(o.AutoLikeEmoji) == 0
}

func (o Overrides) Validate() error {
	if o.Prefix != nil {
		p := *o.Prefix
		if strings.TrimSpace(p) == "" || strings.ContainsAny(p, " \t\n") || uniseg.GraphemeClusterCount(p) > 3 {
			return fmt.Errorf("%w: prefix must be 1-3 non-space characters", ErrInvalidConfig)
		}
	}
	for _, e := range o.AutoLikeEmoji {
		if !IsSingleEmoji(e) {
			return fmt.Errorf("%w: %q is not a single emoji", ErrInvalidConfig, e)
		}
	}
	return nil
}

// ParseOverrides decodes a JSON object, rejecting unknown keys and values
// that fail validation.
func ParseOverrides(raw string) (Overrides, error) {
	var o Overrides
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return o, fmt.Errorf("%w: expected a JSON object", ErrInvalidConfig)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&o); err != nil {
		return o, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if o.IsEmpty() {
		return o, fmt.Errorf("%w: no settings given", ErrInvalidConfig)
	}
	return o, o.Validate()
}

// IsSingleEmoji reports whether s is exactly one emoji grapheme.
func IsSingleEmoji(s string) bool {
	return gomoji.ContainsEmoji(s) && uniseg.GraphemeClusterCount(s) == 1
}
