package videofeed

// topicChannels keys the curated channel handles by topic. Only the topics
// with a curated list produce channel scrapes; the rest rely on the
// topic-search round.
var topicChannels = map[string][]string{
	"Christianity": {
		"vaticannews",
		"thebibleproject",
		"desiringGod",
		"gospelcoalition",
		"AscensionPresents",
		"700club",
		"CBNNews",
		"CatholicNewsAgency",
		"CrosswayBooks",
		"Ligonierministries",
	},
	"Technology": {
		"TheVerge",
		"mkbhd",
		"LinusTechTips",
	},
	"Science": {
		"kurzgesagt",
		"veritasium",
		"SciShow",
	},
	"Sports": {
		"ESPN",
		"SkySportsFootball",
	},
	"Global News": {
		"BBCNews",
		"AlJazeeraEnglish",
		"DWNews",
	},
}

// priorityChannels join every cycle's channel set regardless of active
// topics, covering the pinned entities.
var priorityChannels = []string{
	"jesusredeems",
}

// humanizedChannelNames maps a handle to the searchable display name used by
// the topic-search fallback when a direct channel scrape comes back empty.
var humanizedChannelNames = map[string]string{
	"jesusredeems":       "Jesus Redeems Ministries",
	"vaticannews":        "Vatican News",
	"thebibleproject":    "The Bible Project",
	"desiringGod":        "Desiring God",
	"gospelcoalition":    "The Gospel Coalition",
	"AscensionPresents":  "Ascension Presents",
	"700club":            "The 700 Club",
	"CBNNews":            "CBN News",
	"CatholicNewsAgency": "Catholic News Agency",
	"CrosswayBooks":      "Crossway",
	"Ligonierministries": "Ligonier Ministries",
}

// channelsForTopics resolves the active topic set to the cycle's channel
// list, priority channels always unioned in.
func channelsForTopics(activeTopics []string) []string {
	var channels []string
	seen := make(map[string]bool)

	add := func(handle string) {
		if !seen[handle] {
			seen[handle] = true
			channels = append(channels, handle)
		}
	}

	if len(activeTopics) == 0 {
		for _, handle := range topicChannels["Christianity"] {
			add(handle)
		}
	}
	for _, topic := range activeTopics {
		for _, handle := range topicChannels[topic] {
			add(handle)
		}
	}
	for _, handle := range priorityChannels {
		add(handle)
	}
	return channels
}

// searchName returns the query used when a channel scrape falls back to a
// topic search.
func searchName(handle string) string {
	if name, ok := humanizedChannelNames[handle]; ok {
		return name
	}
	return handle
}
