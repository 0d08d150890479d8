package lazy

import (
	_ "embed"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Kind classifies a deferred resource by how it must be loaded.
type Kind string

const (
	KindImage      Kind = "image"
	KindVideo      Kind = "video"
	KindIframe     Kind = "iframe"
	KindBackground Kind = "background"
)

//go:embed kinds.toml
var kindsTOML []byte

type kindRules struct {
	Extensions  []string `toml:"extensions"`
	URLPatterns []string `toml:"url_patterns"`
}

type kindsConfig struct {
	Image kindRules `toml:"image"`
	Video kindRules `toml:"video"`
}

// Detector maps a resource URL to a load kind based on its extension and
// well-known URL patterns.
type Detector struct {
	config *kindsConfig
}

func NewDetector() (*Detector, error) {
	var config kindsConfig
	if err := toml.Unmarshal(kindsTOML, &config); err != nil {
		return nil, err
	}
	return &Detector{config: &config}, nil
}

// DetectKind classifies a URL. Anything that is neither an image nor a
// video is treated as an embeddable document. Background resources are
// never detected; callers mark those explicitly.
func (d *Detector) DetectKind(url string) Kind {
	lower := strings.ToLower(url)

	var ext string
	if idx := strings.LastIndex(lower, "."); idx != -1 {
		ext = lower[idx+1:]
		if qIdx := strings.Index(ext, "?"); qIdx != -1 {
			ext = ext[:qIdx]
		}
		if aIdx := strings.Index(ext, "#"); aIdx != -1 {
			ext = ext[:aIdx]
		}
	}

	if ext != "" {
		if containsString(d.config.Image.Extensions, ext) {
			return KindImage
		}
		if containsString(d.config.Video.Extensions, ext) {
			return KindVideo
		}
	}

	if matchesPattern(lower, d.config.Video.URLPatterns) {
		return KindVideo
	}
	if matchesPattern(lower, d.config.Image.URLPatterns) {
		return KindImage
	}

	return KindIframe
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func matchesPattern(url string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(url, pattern) {
			return true
		}
	}
	return false
}
