package safeurl

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tidings/internal/core"
	"tidings/internal/logger"
)

const (
	// resolveBudget bounds the whole redirect chase for one URL.
	resolveBudget = 10 * time.Second

	browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var blockedHosts = map[string]bool{
	"localhost": true,
	"0.0.0.0":   true,
	"::1":       true,
	"[::1]":     true,
}

var blockedSuffixes = []string{".local", ".internal", ".corp", ".localdomain"}

var privateHostPattern = regexp.MustCompile(`^(10\.|172\.(1[6-9]|2[0-9]|3[01])\.|192\.168\.)`)

// aggregator hosts whose URLs must be chased to the publisher before use.
var aggregatorHosts = []string{"news.google.com"}

// trackingHosts never count as a resolved landing page.
var trackingHosts = []string{
	"gstatic", "googleusercontent", "doubleclick", "googletagmanager", "googlesyndication",
}

var locationReplacePattern = regexp.MustCompile(`window\.location\.replace\("([^"]+)"\)`)

// Safe reports whether a URL may be fetched at all. Anything pointing at
// loopback, private, link-local or reserved address space is rejected, as are
// non-HTTP schemes and internal-looking hostnames.
func Safe(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || blockedHosts[host] {
		return false
	}
	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(host, suffix) {
			return false
		}
	}
	if privateHostPattern.MatchString(host) {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
			ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return false
		}
	}
	return true
}

// Check returns a SafetyViolation error for URLs that fail Safe. Extraction
// paths use it to surface the rejection as a structured error.
func Check(raw string) error {
	if !Safe(raw) {
		return fmt.Errorf("%w: %s", core.ErrSafetyViolation, raw)
	}
	return nil
}

// Resolver chases aggregator redirect chains to the publisher URL.
type Resolver struct {
	client *http.Client
}

// NewResolver creates a Resolver with its own HTTP client. The client follows
// redirects itself; the resolver only inspects the landing page.
func NewResolver() *Resolver {
	return &Resolver{
		client: &http.Client{
			Timeout: resolveBudget,
		},
	}
}

// IsAggregator reports whether the URL belongs to a host whose links need
// resolution before extraction.
func IsAggregator(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, agg := range aggregatorHosts {
		if host == agg || strings.HasSuffix(host, "."+agg) {
			return true
		}
	}
	return false
}

// Resolve returns the publisher URL behind an aggregator link. Four
// strategies run in order: HEAD with redirects, GET with redirects, scanning
// the landing body for a plausible article link, and matching a
// window.location.replace call. If everything fails the original URL comes
// back unchanged. Non-aggregator URLs pass through untouched.
func (r *Resolver) Resolve(ctx context.Context, raw string) string {
	if !IsAggregator(raw) {
		return raw
	}
	if err := Check(raw); err != nil {
		logger.Warn("refusing to resolve unsafe URL", "url", raw)
		return raw
	}

	ctx, cancel := context.WithTimeout(ctx, resolveBudget)
	defer cancel()

	if landed := r.follow(ctx, http.MethodHead, raw); landed != "" {
		return landed
	}

	landed, body := r.followGet(ctx, raw)
	if landed != "" {
		return landed
	}
	if body != "" {
		if found := findArticleLink(body); found != "" {
			return found
		}
		if m := locationReplacePattern.FindStringSubmatch(body); len(m) == 2 && Safe(m[1]) {
			return m[1]
		}
	}
	return raw
}

// follow issues a redirect-following request and accepts the landing URL when
// it has left the aggregator and its user-content mirror.
func (r *Resolver) follow(ctx context.Context, method, raw string) string {
	req, err := http.NewRequestWithContext(ctx, method, raw, nil)
	if err != nil {
		return ""
	}
	r.decorate(req, raw)

	resp, err := r.client.Do(req)
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	landed := resp.Request.URL.String()
	if acceptableLanding(landed) {
		return landed
	}
	return ""
}

// followGet is the GET strategy; it also returns the body so the parse
// strategies can reuse it without a second fetch.
func (r *Resolver) followGet(ctx context.Context, raw string) (string, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return "", ""
	}
	r.decorate(req, raw)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", ""
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))

	landed := resp.Request.URL.String()
	if acceptableLanding(landed) {
		return landed, string(body)
	}
	return "", string(body)
}

func (r *Resolver) decorate(req *http.Request, raw string) {
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Connection", "close")
	if u, err := url.Parse(raw); err == nil {
		req.Header.Set("Referer", u.Scheme+"://"+u.Host+"/")
	}
}

// acceptableLanding rejects landing URLs still on the aggregator or its
// user-content mirror.
func acceptableLanding(landed string) bool {
	u, err := url.Parse(landed)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if strings.Contains(host, "news.google.com") || strings.Contains(host, "googleusercontent") {
		return false
	}
	return Safe(landed)
}

// findArticleLink scans a landing body for an absolute URL that looks like an
// article and is not an aggregator, tracking, ads or consent host. URLs with
// year prefixes, .html or article/news path segments win over the rest.
func findArticleLink(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}

	var candidates []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.HasPrefix(href, "http") {
			return
		}
		lower := strings.ToLower(href)
		if strings.Contains(lower, "google.com") {
			return
		}
		for _, tracker := range trackingHosts {
			if strings.Contains(lower, tracker) {
				return
			}
		}
		if !Safe(href) {
			return
		}
		candidates = append(candidates, href)
	})

	for _, c := range candidates {
		lower := strings.ToLower(c)
		if strings.Contains(lower, "/20") || strings.Contains(lower, ".html") ||
			strings.Contains(lower, "article") || strings.Contains(lower, "news") {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}
