package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndSanitizeMarketInput(t *testing.T) {
	s := NewSecurityService()

	out, err := s.ValidateAndSanitizeMarketInput(MarketInput{
		Title:       "  Will <b>it</b> rain tomorrow?<script>alert(1)</script> ",
		Description: "Resolves **YES** if [the bureau](https://example.org) reports rain.\n\n<img src=x onerror=alert(1)>",
	})
	require.NoError(t, err)
	assert.Equal(t, "Will it rain tomorrow?", out.Title)
	assert.Contains(t, out.DescriptionHTML, "<strong>YES</strong>")
	assert.Contains(t, out.DescriptionHTML, "nofollow")
	assert.NotContains(t, out.DescriptionHTML, "onerror")
	assert.NotContains(t, out.Description, "<img")
	assert.Equal(t, "YES", out.YesLabel)
	assert.Equal(t, "NO", out.NoLabel)
}

func TestValidateAndSanitizeMarketInputRejects(t *testing.T) {
	s := NewSecurityService()
	tests := []struct {
		name string
		in   MarketInput
	}{
		{"empty title", MarketInput{Title: "<p></p>"}},
		{"long title", MarketInput{Title: strings.Repeat("x", MaxTitleLength+1)}},
		{"long description", MarketInput{Title: "ok", Description: strings.Repeat("y", MaxDescriptionLength+1)}},
		{"long label", MarketInput{Title: "ok", YesLabel: strings.Repeat("z", MaxLabelLength+1)}},
		{"same labels", MarketInput{Title: "ok", YesLabel: "up", NoLabel: "UP"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateAndSanitizeMarketInput(tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
