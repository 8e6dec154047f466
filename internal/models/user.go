package models

import (
	"strings"
	"time"
)

type Voice struct {
	VoiceID    string            `json:"voice_id"`
	Name       string            `json:"name"`
	Gender     string            `json:"gender,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
	PreviewURL string            `json:"preview_url,omitempty"`
}

// GenderLabel prefers the explicit gender field and falls back to ElevenLabs labels.
func (v Voice) GenderLabel() string {
	if v.Gender != "" {
		return strings.ToLower(v.Gender)
	}
	return strings.ToLower(v.Labels["gender"])
}

func (v Voice) DisplayName() string {
	if v.Name == "" {
		return v.VoiceID
	}
	return v.Name
}

type VoicesFile struct {
	Voices []Voice `json:"voices"`
}

// Background is the metadata of a background music track. The audio itself
// lives in the object store (custom uploads) or the backgrounds directory (system tracks).
type Background struct {
	ID                 string    `json:"id"`
	UserID             int64     `json:"userId"`
	Filename           string    `json:"filename"`
	CustomName         string    `json:"customName"`
	CustomDescription  string    `json:"customDescription"`
	Icon               string    `json:"icon"`
	Color              string    `json:"color"`
	IsSystemBackground bool      `json:"isSystemBackground"`
	CreatedAt          time.Time `json:"createdAt"`
}

// SelectionKey is the wizard background value that refers to this track.
func (b Background) SelectionKey() string {
	if b.IsSystemBackground {
		return b.ID
	}
	return "saved-" + b.ID
}
