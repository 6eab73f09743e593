// Package security sanitizes user-supplied market content before it is stored
// or rendered.
package security

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	MaxTitleLength       = 160
	MaxDescriptionLength = 2000
	MaxLabelLength       = 20
)

var ErrInvalidInput = errors.New("invalid input")

// MarketInput is untrusted market text as submitted.
type MarketInput struct {
	Title       string
	Description string
	YesLabel    string
	NoLabel     string
}

// SanitizedMarket is MarketInput made safe to store and render.
type SanitizedMarket struct {
	Title           string
	Description     string
	DescriptionHTML string
	YesLabel        string
	NoLabel         string
}

// SecurityService holds the sanitizing policies and the markdown renderer.
type SecurityService struct {
	strict   *bluemonday.Policy
	ugc      *bluemonday.Policy
	markdown goldmark.Markdown
}

func NewSecurityService() *SecurityService {
	ugc := bluemonday.UGCPolicy()
	ugc.RequireNoFollowOnLinks(true)
	ugc.AddTargetBlankToFullyQualifiedLinks(true)
	return &SecurityService{
		strict:   bluemonday.StrictPolicy(),
		ugc:      ugc,
		markdown: goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
	}
}

// StripHTML removes all markup from s.
func (s *SecurityService) StripHTML(in string) string {
	return strings.TrimSpace(s.strict.Sanitize(in))
}

// RenderMarkdown renders untrusted markdown to sanitized HTML.
func (s *SecurityService) RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return s.ugc.Sanitize(buf.String()), nil
}

// ValidateAndSanitizeMarketInput checks lengths and strips or escapes markup.
// Empty labels default to YES and NO.
func (s *SecurityService) ValidateAndSanitizeMarketInput(in MarketInput) (*SanitizedMarket, error) {
	title := s.StripHTML(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, MaxTitleLength)
	}

	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return nil, fmt.Errorf("%w: description must be at most %d characters", ErrInvalidInput, MaxDescriptionLength)
	}
	html, err := s.RenderMarkdown(description)
	if err != nil {
		return nil, fmt.Errorf("%w: description: %v", ErrInvalidInput, err)
	}

	yes, no := s.StripHTML(in.YesLabel), s.StripHTML(in.NoLabel)
	if yes == "" {
		yes = "YES"
	}
	if no == "" {
		no = "NO"
	}
	if utf8.RuneCountInString(yes) > MaxLabelLength || utf8.RuneCountInString(no) > MaxLabelLength {
		return nil, fmt.Errorf("%w: labels must be %d characters or less", ErrInvalidInput, MaxLabelLength)
	}
	if strings.EqualFold(yes, no) {
		return nil, fmt.Errorf("%w: labels must differ", ErrInvalidInput)
	}

	return &SanitizedMarket{
		Title:           title,
		Description:     s.strict.Sanitize(description),
		DescriptionHTML: html,
		YesLabel:        yes,
		NoLabel:         no,
	}, nil
}
