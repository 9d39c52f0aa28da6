package compose

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

func (a Alignment) valid() bool {
	return a == AlignLeft || a == AlignCenter || a == AlignRight
}

const (
	MinFontSize = 8
	MaxFontSize = 72
	MinPhotoPct = 10
	MaxPhotoPct = 300
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// WishPresets maps an occasion to its canned wish message. The "Custom"
// occasion carries whatever text the user typed.
var WishPresets = map[string]string{
	"Birthday":         "Wishing you a very Happy Birthday!",
	"Wedding":          "Congratulations on your wedding!",
	"Diwali":           "Happy Diwali! May the festival of lights bring joy and prosperity.",
	"Pongal":           "Happy Pongal! Wishing you a bountiful harvest and happiness.",
	"Christmas":        "Merry Christmas and a Happy New Year!",
	"New Year":         "Happy New Year! Wishing you all the best for the year ahead.",
	"Navarathri Pooja": "Happy Navarathri! May the divine blessings be with you.",
	"Custom":           "",
}

// WishFor resolves the wish text for an occasion, preferring the custom
// text when present.
func WishFor(occasion, custom string) string {
	if custom != "" {
		return custom
	}
	return WishPresets[occasion]
}

// Spec is the full set of user-entered values driving one composition.
// It is immutable per render.
type Spec struct {
	BackgroundURL    string    `json:"background_url"`
	UserName         string    `json:"user_name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Occasion         string    `json:"occasion,omitempty"`
	Wish             string    `json:"wish,omitempty"`
	Date             string    `json:"date,omitempty"`
	UserPhotoURL     string    `json:"user_photo_url,omitempty"`
	FontSize         int       `json:"font_size"`
	TextAlign        Alignment `json:"text_align"`
	FontColor        string    `json:"font_color"`
	FontFamily       string    `json:"font_family"`
	BackgroundColor  string    `json:"background_color"`
	PhotoAlign       Alignment `json:"photo_align"`
	PhotoSizePct     int       `json:"photo_size_pct"`
	SwapPhotoAndText bool      `json:"swap_photo_and_text"`
}

// ApplyDefaults fills zero-valued styling fields the same way the form
// pre-populates them.
func (s *Spec) ApplyDefaults() {
	if s.FontSize == 0 {
		s.FontSize = 18
	}
	if s.TextAlign == "" {
		s.TextAlign = AlignLeft
	}
	if s.FontColor == "" {
		s.FontColor = "#333333"
	}
	if s.FontFamily == "" {
		s.FontFamily = "Roboto"
	}
	if s.BackgroundColor == "" {
		s.BackgroundColor = "#ffffff"
	}
	if s.PhotoAlign == "" {
		s.PhotoAlign = AlignLeft
	}
	if s.PhotoSizePct == 0 {
		s.PhotoSizePct = 100
	}
	if s.Wish == "" && s.Occasion != "" {
		s.Wish = WishPresets[s.Occasion]
	}
}

// ValidationError describes a single field failing its contract.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every invariant of the spec. Generation must not start
// while this returns a non-nil error.
func (s *Spec) Validate() error {
	var errs ValidationErrors
	add := func(field, message string) {
		errs = append(errs, ValidationError{Field: field, Message: message})
	}

	if s.BackgroundURL == "" {
		add("background_url", "please select a background image before generating")
	}
	if len(strings.TrimSpace(s.UserName)) < 2 {
		add("user_name", "your name must be at least 2 characters")
	}
	if _, err := mail.ParseAddress(s.Email); err != nil {
		add("email", "please enter a valid email address")
	}
	if len(strings.TrimSpace(s.Phone)) < 10 {
		add("phone", "please enter a valid phone number")
	}
	if s.FontSize < MinFontSize || s.FontSize > MaxFontSize {
		add("font_size", fmt.Sprintf("font size must be between %d and %d", MinFontSize, MaxFontSize))
	}
	if s.PhotoSizePct < MinPhotoPct || s.PhotoSizePct > MaxPhotoPct {
		add("photo_size_pct", fmt.Sprintf("photo size must be between %d and %d percent", MinPhotoPct, MaxPhotoPct))
	}
	if !hexColor.MatchString(s.FontColor) {
		add("font_color", "please enter a valid hex color")
	}
	if !hexColor.MatchString(s.BackgroundColor) {
		add("background_color", "please enter a valid hex color")
	}
	if !s.TextAlign.valid() {
		add("text_align", "alignment must be left, center or right")
	}
	if !s.PhotoAlign.valid() {
		add("photo_align", "alignment must be left, center or right")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
