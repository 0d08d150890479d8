package sources

import (
	"net/url"
	"strings"
)

// FeedHint is what a resolver knows about a site URL before its feed has
// been fetched.
type FeedHint struct {
	// FeedURL is the actual feed endpoint to poll.
	FeedURL string
	// Title overrides the feed's own title when set.
	Title string
}

// Resolver rewrites a site URL into its feed endpoint. Sites like Reddit
// or YouTube serve feeds on endpoints users rarely paste directly.
type Resolver interface {
	Name() string
	CanResolve(rawURL string) bool
	Resolve(rawURL string) FeedHint
	// Priority breaks ties when several resolvers claim a URL, higher wins.
	Priority() int
}

// ResolverSet picks the best resolver for a URL.
type ResolverSet struct {
	resolvers []Resolver
}

func NewResolverSet(resolvers ...Resolver) *ResolverSet {
	return &ResolverSet{resolvers: resolvers}
}

// DefaultResolvers covers the sites users most often paste as-is.
func DefaultResolvers() *ResolverSet {
	return NewResolverSet(redditResolver{}, youtubeResolver{})
}

// Resolve returns the hint of the highest-priority matching resolver, or
// the URL unchanged when nothing claims it.
func (s *ResolverSet) Resolve(rawURL string) FeedHint {
	var best Resolver
	bestPriority := -1
	for _, r := range s.resolvers {
		if r.CanResolve(rawURL) && r.Priority() > bestPriority {
			best = r
			bestPriority = r.Priority()
		}
	}
	if best == nil {
		return FeedHint{FeedURL: rawURL}
	}
	return best.Resolve(rawURL)
}

// redditResolver maps subreddit URLs to their .rss endpoint.
type redditResolver struct{}

func (redditResolver) Name() string  { return "reddit" }
func (redditResolver) Priority() int { return 50 }

func (redditResolver) CanResolve(rawURL string) bool {
	return strings.Contains(rawURL, "://www.reddit.com/r/") ||
		strings.Contains(rawURL, "://reddit.com/r/")
}

func (redditResolver) Resolve(rawURL string) FeedHint {
	trimmed := strings.TrimSuffix(rawURL, "/")

	subreddit := ""
	if parts := strings.Split(trimmed, "/r/"); len(parts) > 1 {
		subreddit = strings.Split(parts[1], "/")[0]
	}

	hint := FeedHint{FeedURL: trimmed + ".rss"}
	if subreddit != "" {
		hint.Title = "r/" + subreddit
	}
	return hint
}

// youtubeResolver maps channel URLs to the videos.xml feed. Only
// /channel/<id> URLs carry the channel id in the path; handles and custom
// URLs would need an API lookup and are left to the generic path.
type youtubeResolver struct{}

func (youtubeResolver) Name() string  { return "youtube" }
func (youtubeResolver) Priority() int { return 50 }

func (youtubeResolver) CanResolve(rawURL string) bool {
	return strings.Contains(rawURL, "youtube.com/channel/")
}

func (youtubeResolver) Resolve(rawURL string) FeedHint {
	u, err := url.Parse(rawURL)
	if err != nil {
		return FeedHint{FeedURL: rawURL}
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "channel" || parts[1] == "" {
		return FeedHint{FeedURL: rawURL}
	}
	channelID := parts[1]

	return FeedHint{
		FeedURL: "https://www.youtube.com/feeds/videos.xml?channel_id=" + channelID,
	}
}
