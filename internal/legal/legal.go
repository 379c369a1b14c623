package legal

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"tidings/internal/core"
	"tidings/internal/logger"
	"tidings/internal/search"
	"tidings/internal/topics"
)

const (
	fanOutPool = 3

	actsLimit       = 5
	proceduresLimit = 5
	newsLimit       = 3

	perQueryResults = 3
	newsRawResults  = 10

	snippetCap = 200
	contextCap = 300

	// fallbackMarker is appended to the synthesis prompt when every adapter
	// came back empty, so the model answers from its own knowledge instead of
	// an empty context.
	fallbackMarker = "SEARCH FAILED. ANSWER FROM GENERAL KNOWLEDGE"

	apologyAnswer = "I'm sorry, I could not synthesize the legal information right now. Please try again later."
)

// actTemplates target statute registries through site operators.
var actTemplates = []string{
	`"%s" Indian Act Section site:indiankanoon.org`,
	`"%s" rule gazette site:legislative.gov.in`,
	`"%s" act text site:indiacode.nic.in`,
}

// procedureTemplates target step-by-step official guides.
var procedureTemplates = []string{
	`%s procedure step by step India official guide`,
	`%s application form government portal India`,
}

// legalVocabulary gates the news adapter: an item must mention at least one
// token to count as legal news.
var legalVocabulary = []string{
	"court", "judgement", "judgment", "law", "act", "bill", "rights",
	"constitution", "freedom", "religion", "minority", "justice",
	"petition", "verdict", "tribunal",
}

// voiceForLanguage is the static speech voice selection.
var voiceForLanguage = map[string]string{
	"en": "Kore",
	"hi": "Fenrir",
	"ta": "Aoede",
}

// Generator is the synthesis surface; satisfied by llm.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Speaker produces audio for an answer; satisfied by llm.Client.
type Speaker interface {
	Speak(ctx context.Context, text, voice string) ([]byte, error)
}

// Reference is one supporting source in the structured response.
type Reference struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Response is the structured legal answer.
type Response struct {
	Answer      string      `json:"answer"`
	Acts        []Reference `json:"acts"`
	Procedures  []Reference `json:"procedures"`
	News        []Reference `json:"news"`
	AudioBase64 string      `json:"audio_base64,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Assistant answers statutory questions: bounded-parallel registry searches
// plus LLM synthesis.
type Assistant struct {
	provider  search.Provider
	generator Generator
	speaker   Speaker
	topics    *topics.Manager
}

// NewAssistant wires a legal assistant. generator may be nil (degraded: no
// synthesis); speaker may be nil (no audio).
func NewAssistant(provider search.Provider, generator Generator, speaker Speaker, tm *topics.Manager) *Assistant {
	return &Assistant{
		provider:  provider,
		generator: generator,
		speaker:   speaker,
		topics:    tm,
	}
}

// Ask runs the three fan-out adapters and synthesizes a structured Markdown
// answer. withSpeech additionally returns base64 audio of the answer.
func (a *Assistant) Ask(ctx context.Context, query, lang string, withSpeech bool) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty legal query", core.ErrValidation)
	}

	searchQuery := a.prepareQuery(ctx, query, lang)

	var acts, procedures, news []core.Hit
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutPool)
	g.Go(func() error {
		acts = a.searchActs(gctx, searchQuery)
		return nil
	})
	g.Go(func() error {
		procedures = a.searchProcedures(gctx, searchQuery)
		return nil
	})
	g.Go(func() error {
		news = a.searchNews(gctx, searchQuery)
		return nil
	})
	_ = g.Wait()

	resp := &Response{
		Acts:       references(acts),
		Procedures: references(procedures),
		News:       references(news),
	}

	answer, synthErr := a.synthesize(ctx, query, lang, acts, procedures)
	if synthErr != nil {
		logger.Error("legal synthesis failed", synthErr, "query", query)
		resp.Answer = apologyAnswer
		resp.Error = synthErr.Error()
		return resp, nil
	}
	resp.Answer = answer

	if withSpeech && a.speaker != nil {
		voice, ok := voiceForLanguage[lang]
		if !ok {
			voice = voiceForLanguage["en"]
		}
		if audio, err := a.speaker.Speak(ctx, answer, voice); err == nil {
			resp.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
		} else {
			logger.Warn("legal speech synthesis failed", "error", err.Error())
		}
	}
	return resp, nil
}

// prepareQuery translates non-English queries and appends active topic
// tokens.
func (a *Assistant) prepareQuery(ctx context.Context, query, lang string) string {
	if lang != "" && lang != "en" && a.generator != nil {
		if translated, err := a.generator.Translate(ctx, query, "en"); err == nil && translated != "" {
			query = translated
		} else if err != nil {
			logger.Warn("legal query translation failed", "error", err.Error())
		}
	}
	if a.topics != nil {
		if active := a.topics.ActiveKeywords(); len(active) > 0 {
			query = query + " " + strings.Join(active, " ")
		}
	}
	return query
}

func (a *Assistant) searchActs(ctx context.Context, query string) []core.Hit {
	var hits []core.Hit
	for _, tmpl := range actTemplates {
		hits = append(hits, a.searchWithFallback(ctx, fmt.Sprintf(tmpl, query), perQueryResults)...)
	}
	return topN(dedupeByURL(hits), actsLimit)
}

func (a *Assistant) searchProcedures(ctx context.Context, query string) []core.Hit {
	var hits []core.Hit
	for _, tmpl := range procedureTemplates {
		hits = append(hits, a.searchWithFallback(ctx, fmt.Sprintf(tmpl, query), perQueryResults)...)
	}
	return topN(dedupeByURL(hits), proceduresLimit)
}

func (a *Assistant) searchNews(ctx context.Context, query string) []core.Hit {
	compound := fmt.Sprintf("%s (court OR law OR rights OR persecution) India news", query)
	raw := a.searchWithFallback(ctx, compound, newsRawResults)

	var filtered []core.Hit
	for _, h := range raw {
		text := strings.ToLower(h.Title + " " + h.Snippet)
		for _, token := range legalVocabulary {
			if strings.Contains(text, token) {
				filtered = append(filtered, h)
				break
			}
		}
	}
	return topN(dedupeByURL(filtered), newsLimit)
}

// searchWithFallback runs one query against the Indian region first and
// retries globally when it comes back empty. Adapter failures degrade to an
// empty slice.
func (a *Assistant) searchWithFallback(ctx context.Context, query string, limit int) []core.Hit {
	for _, region := range []string{"in-en", "wt-wt"} {
		hits, err := a.provider.Search(ctx, query, search.Config{
			MaxResults: limit,
			Region:     region,
		})
		if err != nil {
			logger.Debug("legal adapter query failed", "query", query, "region", region, "error", err.Error())
			continue
		}
		if len(hits) > 0 {
			return hits
		}
	}
	return nil
}

// synthesize builds the seven-section prompt and runs the model.
func (a *Assistant) synthesize(ctx context.Context, query, lang string, acts, procedures []core.Hit) (string, error) {
	if a.generator == nil {
		return "", fmt.Errorf("%w: no model configured", core.ErrLLMFailure)
	}

	var b strings.Builder
	b.WriteString("You are an expert Indian Legal Assistant specializing in constitutional rights ")
	b.WriteString("with a focus on minority contexts.\n")
	b.WriteString("Answer strictly from the provided context. Do not invent laws.\n\n")
	b.WriteString("Structure your answer in Markdown with exactly these seven sections:\n")
	b.WriteString("1. **Summary**\n")
	b.WriteString("2. **Legal Basis** (cite the specific Acts, Sections or Articles from the context)\n")
	b.WriteString("3. **Procedure** (step-by-step practical guide)\n")
	b.WriteString("4. **Documents Required** (bulleted list)\n")
	b.WriteString("5. **Relevant Authorities** (who to approach)\n")
	b.WriteString("6. **Important Notes** (key considerations and warnings)\n")
	b.WriteString("7. **Disclaimer** (informational purposes only, not professional legal advice)\n\n")
	if lang != "" && lang != "en" {
		fmt.Fprintf(&b, "Write the answer in the language with code %q.\n\n", lang)
	}
	fmt.Fprintf(&b, "User Query: %s\n\n", query)

	if len(acts) == 0 && len(procedures) == 0 {
		logger.Warn("legal fan-out returned no context, answering from general knowledge", "query", query)
		b.WriteString(fallbackMarker)
		b.WriteString("\n")
	} else {
		b.WriteString(contextBlock("RELEVANT ACTS & STATUTES", acts))
		b.WriteString(contextBlock("PROCEDURAL GUIDES & FORMS", procedures))
	}
	return a.generator.Generate(ctx, b.String())
}

func contextBlock(heading string, hits []core.Hit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s ---\n", heading)
	for i, h := range hits {
		snippet := h.Snippet
		if len(snippet) > contextCap {
			snippet = snippet[:contextCap]
		}
		fmt.Fprintf(&b, "Source %d: %s (%s)\nSnippet: %s\n\n", i+1, h.Title, h.URL, snippet)
	}
	return b.String()
}

func references(hits []core.Hit) []Reference {
	refs := make([]Reference, 0, len(hits))
	for _, h := range hits {
		snippet := h.Snippet
		if len(snippet) > snippetCap {
			snippet = snippet[:snippetCap]
		}
		refs = append(refs, Reference{Title: h.Title, URL: h.URL, Snippet: snippet})
	}
	return refs
}

func dedupeByURL(hits []core.Hit) []core.Hit {
	seen := make(map[string]bool, len(hits))
	var out []core.Hit
	for _, h := range hits {
		key := core.NormalizeURL(h.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	return out
}

func topN(hits []core.Hit, n int) []core.Hit {
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}
