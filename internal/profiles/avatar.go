package profiles

import (
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/angelmondragon/kiko-social-backend/pkg/config"
)

const defaultTileColor = "#667eea"

var (
	colorRe = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{3,20})$`)

	// palette used when assigning a color to a newly created profile
	palette = []string{
		"#667eea", "#764ba2", "#f093fb", "#f5576c",
		"#4facfe", "#43e97b", "#fa709a", "#30cfd0",
	}
)

// Avatars derives avatar sources. Every method is a pure function of its
// inputs and the configured placeholder service.
type Avatars struct {
	cfg config.AvatarConfig
}

func NewAvatars(cfg config.AvatarConfig) Avatars {
	return Avatars{cfg: cfg}
}

// Inline renders a round colored tile holding the upper-cased first letter of
// name as a data URI.
func (a Avatars) Inline(color, name string) string {
	if !colorRe.MatchString(color) {
		color = defaultTileColor
	}
	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64" viewBox="0 0 64 64">`+
			`<rect width="64" height="64" rx="32" fill="%s"/>`+
			`<text x="32" y="32" dy=".35em" text-anchor="middle" font-family="sans-serif" font-size="28" fill="#fff">%s</text>`+
			`</svg>`,
		color, html.EscapeString(initial(name)),
	)
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// Placeholder returns the remote placeholder avatar URL for name.
func (a Avatars) Placeholder(name string) string {
	base := a.cfg.PlaceholderBaseURL
	if base == "" {
		base = "https://ui-avatars.com/api/"
	}
	escaped := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	out := base + "?name=" + escaped
	if a.cfg.Background != "" {
		out += "&background=" + url.QueryEscape(a.cfg.Background)
	}
	if a.cfg.Foreground != "" {
		out += "&color=" + url.QueryEscape(a.cfg.Foreground)
	}
	return out
}

func (a Avatars) source(f fields, name string) string {
	switch {
	case f.avatarColor != "":
		return a.Inline(f.avatarColor, name)
	case f.avatarURL != "":
		return f.avatarURL
	}
	return a.Placeholder(name)
}

// ColorFor picks a stable palette color for a storage key.
func ColorFor(key string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return palette[h.Sum32()%uint32(len(palette))]
}

func initial(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}
