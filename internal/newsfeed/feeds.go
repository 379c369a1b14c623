package newsfeed

// christianityFeeds is the default bundle, used for the Christianity topic
// and as the fallback when no topics are active.
var christianityFeeds = []string{
	"https://www.christianitytoday.com/feed",
	"https://www.persecution.org/feed/",
	"https://morningstarnews.org/feed/",
	"https://www.catholicnewsagency.com/rss/news.xml",
	"https://www1.cbn.com/app/feed/news/rss.php",
	"https://www.christianpost.com/rss/all",
	"https://www.godreports.com/feed",
	"https://premierchristian.news/feed",
	"https://www.missionnetworknews.org/feed",
	"https://www.worthynews.com/feed",
	"https://religionnews.com/feed/",
	"https://www.vaticannews.va/en.rss.xml",
	"https://matterindia.com/feed/",
	"https://www.indiancatholicmatters.org/feed/",
	"https://news.google.com/rss/search?q=Church+of+South+India+Tamil+Nadu&hl=en-IN&gl=IN&ceid=IN:en",
	"https://news.google.com/rss/search?q=Tamil+Nadu+Christian+News&hl=en-IN&gl=IN&ceid=IN:en",
	"https://news.google.com/rss/search?q=Christian+Persecution+India&hl=en-IN&gl=IN&ceid=IN:en",
	"https://news.google.com/rss/search?q=Catholic+Church+Kerala+Tamil+Nadu&hl=en-IN&gl=IN&ceid=IN:en",
	"https://rss.csmonitor.com/feeds/csm",
	"https://cruxnow.com/feed",
	"https://www.ucanews.com/rss/feed",
	"http://www.asianews.it/rss/en.xml",
	"https://www.baptistpress.com/feed/",
	"https://www.thegospelcoalition.org/feed/",
	"https://www.oikoumene.org/en/rss",
	"https://www.opendoors.org/rss",
	"https://christiantoday.co.in/feed",
	"https://www.ucanews.com/rss/india",
	"https://news.google.com/rss/search?q=site:thehindu.com+Christianity&hl=en-IN&gl=IN&ceid=IN:en",
	"https://news.google.com/rss/search?q=Evangelical+Fellowship+of+India&hl=en-IN&gl=IN&ceid=IN:en",
	"https://news.google.com/rss/search?q=Catholic+Bishops+Conference+India&hl=en-IN&gl=IN&ceid=IN:en",
}

// priorityFeeds cover the pinned entities. They join every cycle's feed set
// so pinned content is never starved.
var priorityFeeds = []string{
	"https://jesusredeems.com/feed",
	"https://news.google.com/rss/search?q=Jesus+Redeems+Ministries&hl=en-IN&gl=IN&ceid=IN:en",
	"https://news.google.com/rss/search?q=site:jesusredeems.com&hl=en-IN&gl=IN&ceid=IN:en",
}

// topicFeeds maps every non-Christianity topic to its static feed list.
var topicFeeds = map[string][]string{
	"Technology": {
		"https://techcrunch.com/feed/",
		"https://www.theverge.com/rss/index.xml",
		"https://www.wired.com/feed/rss",
		"https://feeds.arstechnica.com/arstechnica/index",
		"https://news.google.com/rss/search?q=Artificial+Intelligence+Technology&hl=en-IN&gl=IN&ceid=IN:en",
	},
	"Science": {
		"https://www.sciencedaily.com/rss/all.xml",
		"https://science.nasa.gov/feed",
		"https://www.livescience.com/feeds/all",
		"https://news.google.com/rss/search?q=Scientific+Discoveries&hl=en-IN&gl=IN&ceid=IN:en",
	},
	"Sports": {
		"https://www.espn.com/espn/rss/news",
		"https://sports.yahoo.com/rss/",
		"https://feeds.bbci.co.uk/sport/rss.xml",
		"https://news.google.com/rss/search?q=Sports+News+India&hl=en-IN&gl=IN&ceid=IN:en",
	},
	"Global News": {
		"http://feeds.bbci.co.uk/news/rss.xml",
		"https://www.aljazeera.com/xml/rss/all.xml",
		"https://rss.cnn.com/rss/edition.rss",
		"https://www.dw.com/api/rss/en",
	},
}

// targetFeed pairs a feed URL with the topic that selected it; the topic
// decides whether the keyword filter applies.
type targetFeed struct {
	url   string
	topic string
}

// feedsForTopics resolves the active topic set to the cycle's feed list.
// Priority feeds are always unioned in.
func feedsForTopics(activeTopics []string) []targetFeed {
	var targets []targetFeed
	seen := make(map[string]bool)

	add := func(url, topic string) {
		if !seen[url] {
			seen[url] = true
			targets = append(targets, targetFeed{url: url, topic: topic})
		}
	}

	if len(activeTopics) == 0 {
		for _, url := range christianityFeeds {
			add(url, "Christianity")
		}
	}
	for _, topic := range activeTopics {
		if topic == "Christianity" {
			for _, url := range christianityFeeds {
				add(url, topic)
			}
			continue
		}
		for _, url := range topicFeeds[topic] {
			add(url, topic)
		}
	}
	for _, url := range priorityFeeds {
		add(url, "Christianity")
	}
	return targets
}
