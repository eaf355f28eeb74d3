package service

import (
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

// ToContentUnits maps stored history to provider input, one unit per message
// in the same order. A message with an image becomes an image+text pair and
// gets fallback text when the user typed nothing.
func ToContentUnits(msgs []domain.Message) []domain.ContentUnit {
	units := make([]domain.ContentUnit, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		u := domain.ContentUnit{Role: m.Role, Text: m.Content}
		if m.HasImage() {
			u.ImageURL = *m.ImageURL
			if u.Text == "" {
				u.Text = config.ImageFallbackText
			}
		}
		units = append(units, u)
	}
	return units
}
