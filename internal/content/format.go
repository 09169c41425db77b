// Package content turns raw post bodies into typed markup spans and hashtags.
// Everything here is pure and total.
package content

import (
	"html"
	"regexp"
	"strings"
)

type SpanKind string

const (
	SpanText      SpanKind = "text"
	SpanBold      SpanKind = "bold"
	SpanItalic    SpanKind = "italic"
	SpanCode      SpanKind = "code"
	SpanMention   SpanKind = "mention"
	SpanHashtag   SpanKind = "hashtag"
	SpanLineBreak SpanKind = "linebreak"
)

// Span is one typed run of a formatted body. Mention and hashtag spans carry
// the name without its sigil. Text is entity-decoded once, so a renderer that
// escapes on output never double-encodes.
type Span struct {
	Kind SpanKind `json:"kind"`
	Text string   `json:"text,omitempty"`
}

// Formatted is the structured form of a post body.
type Formatted struct {
	Spans    []Span   `json:"spans"`
	Hashtags []string `json:"hashtags"`
}

var (
	hashtagRe = regexp.MustCompile(`#(\w+)`)
	entityRe  = regexp.MustCompile(`^&(?:#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)
)

// Format parses raw into spans and extracts its hashtags.
func Format(raw string) Formatted {
	return Formatted{
		Spans:    Spans(raw),
		Hashtags: Hashtags(raw),
	}
}

// Hashtags returns every #tag in raw, lower-cased, in order of appearance.
// Repeated tags are kept once per occurrence.
func Hashtags(raw string) []string {
	matches := hashtagRe.FindAllStringSubmatch(raw, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.ToLower(m[1]))
	}
	return out
}

// Spans splits raw into markup spans. Recognition is a single left-to-right
// pass: markup inside bold, italic or code is kept as literal text, and an
// unterminated marker is literal too.
func Spans(raw string) []Span {
	p := spanParser{src: raw, spans: []Span{}}
	p.run()
	return p.spans
}

type spanParser struct {
	src   string
	spans []Span
	text  strings.Builder
}

func (p *spanParser) run() {
	s := p.src
	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == '\r' && i+1 < len(s) && s[i+1] == '\n':
			p.emit(SpanLineBreak, "")
			i += 2
		case c == '\n' || c == '\r':
			p.emit(SpanLineBreak, "")
			i++
		case strings.HasPrefix(s[i:], "**"):
			i = p.delimited(i, "**", SpanBold)
		case c == '*':
			i = p.delimited(i, "*", SpanItalic)
		case c == '`':
			i = p.delimited(i, "`", SpanCode)
		case c == '@' && !(i > 0 && isWordByte(s[i-1])):
			i = p.word(i, SpanMention)
		case c == '&':
			entity := entityRe.FindString(s[i:])
			if entity == "" {
				entity = "&"
			}
			p.text.WriteString(entity)
			i += len(entity)
		case c == '#':
			i = p.word(i, SpanHashtag)
		default:
			p.text.WriteByte(c)
			i++
		}
	}
	p.flush()
}

// delimited consumes marker...marker starting at i on a single line. Bold and
// italic bodies may not start or end with a space.
func (p *spanParser) delimited(i int, marker string, kind SpanKind) int {
	start := i + len(marker)
	rest := p.src[start:]
	if nl := strings.IndexAny(rest, "\r\n"); nl >= 0 {
		rest = rest[:nl]
	}
	end := strings.Index(rest, marker)
	if end <= 0 {
		p.text.WriteString(marker)
		return start
	}
	body := rest[:end]
	if kind != SpanCode && (isSpace(body[0]) || isSpace(body[len(body)-1])) {
		p.text.WriteString(marker)
		return start
	}
	p.emit(kind, body)
	return start + end + len(marker)
}

// word consumes a sigil followed by word characters, or keeps the sigil as text.
func (p *spanParser) word(i int, kind SpanKind) int {
	j := i + 1
	for j < len(p.src) && isWordByte(p.src[j]) {
		j++
	}
	if j == i+1 {
		p.text.WriteByte(p.src[i])
		return j
	}
	p.emit(kind, p.src[i+1:j])
	return j
}

func (p *spanParser) emit(kind SpanKind, text string) {
	p.flush()
	if kind == SpanLineBreak {
		p.spans = append(p.spans, Span{Kind: kind})
		return
	}
	p.spans = append(p.spans, Span{Kind: kind, Text: html.UnescapeString(text)})
}

func (p *spanParser) flush() {
	if p.text.Len() == 0 {
		return
	}
	p.spans = append(p.spans, Span{Kind: SpanText, Text: html.UnescapeString(p.text.String())})
	p.text.Reset()
}

// isWordByte matches the ASCII \w class used for hashtags.
func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}
