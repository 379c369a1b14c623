package core

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// SourceType classifies where a Hit came from.
type SourceType string

const (
	SourceWeb            SourceType = "web"
	SourceNews           SourceType = "news"
	SourceVideo          SourceType = "video"
	SourcePaper          SourceType = "paper"
	SourceSocial         SourceType = "social"
	SourceLegalAct       SourceType = "legal-act"
	SourceLegalProcedure SourceType = "legal-procedure"
	SourceLegalNews      SourceType = "legal-news"
)

// GeoTier is the geographic bucket assigned to a Hit.
type GeoTier string

const (
	TierLocal    GeoTier = "Local"
	TierNational GeoTier = "National"
	TierGlobal   GeoTier = "Global"
)

// Hit is one atomic search result. Hits live only within a single request
// and are never persisted. The unexported scoring fields are internal to the
// filter/rank pipeline and do not cross the wire.
type Hit struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Snippet    string     `json:"snippet"`
	SourceType SourceType `json:"source"`
	Engine     string     `json:"engine"`
	Image      *string    `json:"image"`
	Published  string     `json:"published,omitempty"`
	GeoTier    GeoTier    `json:"geo_tier,omitempty"`
	DebugScore float64    `json:"debug_score,omitempty"`

	// Video-only fields, populated by the video adapter.
	Channel  string `json:"channel,omitempty"`
	Views    string `json:"views,omitempty"`
	Duration string `json:"duration,omitempty"`

	// Pipeline scores; zero until the corresponding phase has run.
	Relevance int     `json:"-"`
	BM25      float64 `json:"-"`
	Vector    float64 `json:"-"`
	Quality   float64 `json:"-"`
	Penalty   float64 `json:"-"`
	Hybrid    float64 `json:"-"`
}

// CachedArticle is one row of the news store.
type CachedArticle struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Published  string  `json:"published"`
	Source     string  `json:"source"`
	Image      *string `json:"image"`
	GUID       string  `json:"guid"`
	Timestamp  float64 `json:"timestamp"`
	Snippet    string  `json:"snippet"`
	IsApproved bool    `json:"is_approved"`
	GeoTier    GeoTier `json:"geo_tier,omitempty"`
}

// CachedVideo is one row of the video store.
type CachedVideo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Thumbnail  string  `json:"thumbnail"`
	Channel    string  `json:"channel"`
	Views      string  `json:"views"`
	Published  string  `json:"published"`
	Timestamp  float64 `json:"timestamp"`
	IsApproved bool    `json:"is_approved"`
}

// trackingParams are query parameters stripped during URL normalization.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "fbclid": true, "gclid": true,
	"ref": true, "source": true,
}

// NormalizeURL canonicalizes a URL for identity comparison: scheme and host
// lowered, fragment and tracking query parameters stripped, trailing slash
// removed. Two Hits are the same entity iff their normalized URLs match.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(strings.ToLower(raw))
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for param := range q {
		if trackingParams[strings.ToLower(param)] {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()

	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// HitID derives the content-addressed identifier for a Hit from its
// normalized URL. Stable across restarts.
func HitID(rawURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(NormalizeURL(rawURL))).String()
}

// ArticleID derives the news-store row id from a resolved article URL.
// MD5 hex keeps the ids compatible with previously written stores.
func ArticleID(resolvedURL string) string {
	sum := md5.Sum([]byte(resolvedURL))
	return hex.EncodeToString(sum[:])
}

// Truncate caps s at max bytes without splitting a multi-byte rune. The cut
// point backs up to the nearest rune boundary, so the result is always valid
// UTF-8 when the input is.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// StringPtr returns a pointer to s, or nil when s is empty. Image fields are
// nullable on the wire and must never carry a placeholder.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
