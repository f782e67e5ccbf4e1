package model

import (
	"math"
	"time"
)

// Sock is a single uploaded item awaiting a match
type Sock struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	ImagePath     string    `json:"image_path,omitempty"`
	ImageNoBgPath string    `json:"image_no_bg_path,omitempty"`
	IsMatched     bool      `json:"is_matched"`
	Description   string    `json:"description,omitempty"`
	DominantColor string    `json:"dominant_color,omitempty"`
	PatternType   string    `json:"pattern_type,omitempty"`
	ColorPalette  []string  `json:"color_palette,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// HasProcessedImage reports whether a background-removed image exists
func (s *Sock) HasProcessedImage() bool {
	return s.ImageNoBgPath != ""
}

// SockMatch is a search candidate. It is never persisted client-side.
type SockMatch struct {
	SockID     int64   `json:"sock_id"`
	Similarity float64 `json:"similarity"`
}

// Percent renders similarity as a whole percentage clamped to 0..100
func (m SockMatch) Percent() int {
	s := m.Similarity
	if math.IsNaN(s) || s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return int(math.Round(s * 100))
}
