package card

import (
	"strings"
	"time"
)

// Verdict is the classification the service assigned to a piece of news.
type Verdict string

const (
	VerdictReal Verdict = "REAL"
	VerdictFake Verdict = "FAKE"
)

// ParseVerdict normalizes a verdict string from user input or a server
// payload. Unknown values return false.
func ParseVerdict(s string) (Verdict, bool) {
	switch Verdict(strings.ToUpper(strings.TrimSpace(s))) {
	case VerdictReal:
		return VerdictReal, true
	case VerdictFake:
		return VerdictFake, true
	default:
		return "", false
	}
}

// Engagement action names as used by the service and the local store.
const (
	ActionLike     = "like"
	ActionBookmark = "bookmark"
)

// Timestamp wraps time.Time to accept the timestamp formats the card
// service emits. Python's isoformat() omits the timezone, so plain
// RFC 3339 decoding is not enough.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}

// Card is one analyzed article with its prediction metadata. Field names
// mirror the card service payload.
type Card struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Author     string         `json:"username"`
	Source     string         `json:"source,omitempty"`
	Verdict    Verdict        `json:"prediction"`
	Confidence float64        `json:"confidence"`
	CreatedAt  Timestamp      `json:"timestamp"`
	ImageURL   string         `json:"imageUrl,omitempty"`
	Category   string         `json:"category,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Language   string         `json:"language,omitempty"`
	WordCount  int            `json:"word_count,omitempty"`
	Engagement map[string]int `json:"engagement,omitempty"`
}

// Normalize fills defaults the service is inconsistent about: a missing
// confidence gets the configured fallback, and out-of-range values are
// clamped into [0, 1].
func (c *Card) Normalize(fallbackConfidence float64) {
	if c.Confidence == 0 {
		c.Confidence = fallbackConfidence
	}
	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 1 {
		c.Confidence = 1
	}
	if c.WordCount == 0 && c.Content != "" {
		c.WordCount = len(strings.Fields(c.Content))
	}
}

// Matches reports whether term occurs in the card's title, body or author,
// case-insensitively. The empty term matches everything.
func (c *Card) Matches(term string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	return strings.Contains(strings.ToLower(c.Title), needle) ||
		strings.Contains(strings.ToLower(c.Content), needle) ||
		strings.Contains(strings.ToLower(c.Author), needle)
}

// Reactions returns the engagement count for the given action, zero when
// the service sent none.
func (c *Card) Reactions(action string) int {
	if c.Engagement == nil {
		return 0
	}
	return c.Engagement[action]
}
