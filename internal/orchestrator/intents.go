package orchestrator

import "fmt"

// Intent names form a fixed vocabulary. Each intent expands the topic into
// one or more engine queries, some using site-operator templates.
const (
	IntentGeneral   = "general"
	IntentAcademic  = "academic"
	IntentChristian = "christ_data"
	IntentSocial    = "social"
	IntentVideo     = "video"
	IntentCommerce  = "commerce"
	IntentNews      = "news"
)

// intentTemplates maps each intent to its query templates. %s is the topic.
var intentTemplates = map[string][]string{
	IntentGeneral: {
		"%s",
		"%s overview",
	},
	IntentAcademic: {
		"%s site:arxiv.org OR site:scholar.google.com OR site:researchgate.net",
		"%s research paper",
	},
	IntentChristian: {
		"%s site:christianitytoday.com OR site:christianpost.com OR site:crosswalk.com",
		"%s christian ministry",
	},
	IntentSocial: {
		"%s site:twitter.com OR site:reddit.com OR site:facebook.com",
	},
	IntentVideo: {
		"%s video",
	},
	IntentCommerce: {
		"%s price OR buy OR review",
	},
	IntentNews: {
		"%s news",
		"%s latest developments",
	},
}

// DefaultIntents is the expansion set used when a request names none.
var DefaultIntents = []string{IntentGeneral, IntentNews}

// ExpandQuery formats every template of the requested intents with the
// topic. Unknown intent names are skipped.
func ExpandQuery(topic string, intents []string) []string {
	if len(intents) == 0 {
		intents = DefaultIntents
	}
	var queries []string
	for _, intent := range intents {
		for _, tmpl := range intentTemplates[intent] {
			queries = append(queries, fmt.Sprintf(tmpl, topic))
		}
	}
	return queries
}

// IntentFor reports which intent produced an expanded query index, for error
// attribution. Indexes follow ExpandQuery's emission order.
func IntentFor(intents []string, index int) string {
	if len(intents) == 0 {
		intents = DefaultIntents
	}
	for _, intent := range intents {
		n := len(intentTemplates[intent])
		if index < n {
			return intent
		}
		index -= n
	}
	return IntentGeneral
}
