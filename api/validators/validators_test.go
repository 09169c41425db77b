package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
)

func TestParseQueryInt(t *testing.T) {
	cases := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{query: "", want: 7},
		{query: "limit=%20", want: 7},
		{query: "limit=25", want: 25},
		{query: "limit=0", want: 0},
		{query: "limit=101", wantErr: true},
		{query: "limit=ten", wantErr: true},
		{query: "limit=1&limit=2", wantErr: true},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/feed?"+tc.query, nil)
		got, err := ParseQueryInt(req, "limit", 7, 0, 100)
		if tc.wantErr {
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("%q: expected validation error, got %v", tc.query, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: expected %d, got %d (err=%v)", tc.query, tc.want, got, err)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  Ana\x00 Lopez\x07  ", 0); got != "Ana Lopez" {
		t.Fatalf("expected control characters dropped, got %q", got)
	}
	if got := SanitizeString("héllo wörld", 5); got != "héllo" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
	if got := SanitizeString("ab cd", 3); got != "ab" {
		t.Fatalf("expected trailing space trimmed after cut, got %q", got)
	}
	if got := SanitizeString("line\nbreak", 0); got != "line\nbreak" {
		t.Fatalf("expected newline kept, got %q", got)
	}
}

type createBody struct {
	Content string `json:"content" validate:"required,max=10"`
	Image   string `json:"image" validate:"omitempty,url"`
}

func decodeCode(t *testing.T, raw string) (createBody, *pkgerrors.Error) {
	t.Helper()
	var body createBody
	req := httptest.NewRequest("POST", "/posts", strings.NewReader(raw))
	err := DecodeJSONBody(req, &body)
	if err == nil {
		return body, nil
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("%q: expected validation error, got %v", raw, err)
	}
	return body, typed
}

func TestDecodeJSONBody(t *testing.T) {
	body, typed := decodeCode(t, `{"content":"hi"}`)
	if typed != nil || body.Content != "hi" {
		t.Fatalf("expected decode, got %+v err=%v", body, typed)
	}

	rejected := []string{
		``,
		`{"content":"hi","extra":1}`,
		`{"content":"hi"} {"content":"again"}`,
		`{"content":""}`,
		`{"content":"hi","image":"not a url"}`,
		`{"content":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	}
	for _, raw := range rejected {
		if _, typed := decodeCode(t, raw); typed == nil {
			t.Fatalf("expected %.40q to be rejected", raw)
		}
	}
}

func TestDecodeJSONBodyFieldMessages(t *testing.T) {
	_, typed := decodeCode(t, `{"content":"far too long for this"}`)
	details, ok := typed.Details().(map[string]string)
	if !ok || details["content"] != "must be at most 10" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}
