package geo

import (
	"strings"

	"tidings/internal/core"
)

// localKeywords is the closed city/district/state vocabulary for the Local
// tier.
var localKeywords = []string{
	"tamil nadu", "tamilnadu", "chennai", "madurai", "coimbatore",
	"tiruchirappalli", "trichy", "salem", "tirunelveli", "vellore",
	"erode", "thoothukudi", "tuticorin", "thanjavur", "dindigul",
	"kanyakumari", "nagercoil", "tiruppur", "karur", "namakkal",
	"cuddalore", "kanchipuram", "villupuram", "sivakasi",
}

// nationalKeywords is the country vocabulary for the National tier.
var nationalKeywords = []string{
	"india", "indian", "new delhi", "delhi", "mumbai", "kolkata",
	"bengaluru", "bangalore", "hyderabad", "pune", "ahmedabad",
	"lok sabha", "rajya sabha", "parliament", "supreme court",
	"union government", "central government", "bharat",
}

// Tier classifies one hit from its title, snippet and URL. A country TLD in
// the URL counts as National. Unmatched hits are Global.
func Tier(hit *core.Hit) core.GeoTier {
	text := strings.ToLower(hit.Title + " " + hit.Snippet)
	urlLower := strings.ToLower(hit.URL)

	for _, kw := range localKeywords {
		if strings.Contains(text, kw) {
			return core.TierLocal
		}
	}
	for _, kw := range nationalKeywords {
		if strings.Contains(text, kw) {
			return core.TierNational
		}
	}
	if strings.Contains(urlLower, ".in/") || strings.HasSuffix(urlLower, ".in") {
		return core.TierNational
	}
	return core.TierGlobal
}

// Sort regroups a ranked list into three contiguous tiers, Local then
// National then Global, preserving the incoming order inside each tier. Each
// hit's tier is recorded on its GeoTier field.
func Sort(hits []core.Hit) []core.Hit {
	var local, national, global []core.Hit
	for i := range hits {
		tier := Tier(&hits[i])
		hits[i].GeoTier = tier
		switch tier {
		case core.TierLocal:
			local = append(local, hits[i])
		case core.TierNational:
			national = append(national, hits[i])
		default:
			global = append(global, hits[i])
		}
	}

	out := make([]core.Hit, 0, len(hits))
	out = append(out, local...)
	out = append(out, national...)
	out = append(out, global...)
	return out
}

// SortArticles applies the same tiering to cached articles on feed reads.
func SortArticles(articles []core.CachedArticle) []core.CachedArticle {
	var local, national, global []core.CachedArticle
	for i := range articles {
		hit := core.Hit{Title: articles[i].Title, Snippet: articles[i].Snippet, URL: articles[i].URL}
		tier := Tier(&hit)
		articles[i].GeoTier = tier
		switch tier {
		case core.TierLocal:
			local = append(local, articles[i])
		case core.TierNational:
			national = append(national, articles[i])
		default:
			global = append(global, articles[i])
		}
	}

	out := make([]core.CachedArticle, 0, len(articles))
	out = append(out, local...)
	out = append(out, national...)
	out = append(out, global...)
	return out
}
