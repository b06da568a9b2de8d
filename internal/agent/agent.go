// Package agent implements the restaurant-outreach search agent: a
// hosted language model composed with web search and page extraction,
// used to find candidate restaurants for donation outreach. It shares
// nothing in-process with the marketplace core.
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const systemPrompt = `You are a research assistant for a food bank network.
You help locate restaurants that can donate food: what they serve, where
they are, whether they run donation programs, and how pickup works.
Answer with concrete, actionable summaries.`

// historyLimit bounds the conversation window kept between queries.
const historyLimit = 10

// maxPagesPerSearch bounds how many search hits are fetched per query.
const maxPagesPerSearch = 5

var foodKeywords = []string{
	"sandwiches", "pizza", "burgers", "salads", "soup", "bread", "pastries", "meals",
	"100", "50", "200", "bulk", "large quantity",
}

type turn struct {
	role    string
	content string
}

type Agent struct {
	model    Model
	searcher Searcher
	fetcher  Fetcher
	history  []turn
}

func New(model Model, searcher Searcher, fetcher Fetcher) *Agent {
	return &Agent{
		model:    model,
		searcher: searcher,
		fetcher:  fetcher,
	}
}

// SearchAndAnalyze researches a query - either a food need ("50
// sandwiches") or a restaurant name - and returns a synthesized summary
// of donation-outreach findings.
func (a *Agent) SearchAndAnalyze(ctx context.Context, userQuery string) (string, error) {
	prompt := restaurantPrompt(userQuery)
	if isFoodQuery(userQuery) {
		prompt = foodNeedPrompt(userQuery)
	}

	urls, err := a.searcher.Search(ctx, userQuery+" restaurant food donation", maxPagesPerSearch)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for %q:\n\n", userQuery)
	for _, u := range urls {
		content, err := a.fetcher.Fetch(ctx, u)
		if err != nil {
			log.Printf("Skipping %s: %v", u, err)
			continue
		}
		fmt.Fprintf(&sb, "URL: %s\nContent: %s\n\n", u, content)
	}

	analysisPrompt := fmt.Sprintf(`%s

Based on this search information:

%s

Summarize:
1. Restaurants that match the food type or quantity requested
2. Locations and contact information
3. Food donation policies and procedures
4. Feasibility for the requested quantity
5. Pickup logistics and requirements`, prompt, sb.String())

	answer, err := a.model.Complete(ctx, systemPrompt, a.withHistory(analysisPrompt))
	if err != nil {
		return "", fmt.Errorf("model analysis failed: %w", err)
	}

	a.remember(prompt, answer)
	return answer, nil
}

// withHistory prepends the bounded conversation window to the prompt so
// follow-up queries can reference earlier findings.
func (a *Agent) withHistory(prompt string) string {
	if len(a.history) == 0 {
		return prompt
	}

	var sb strings.Builder
	sb.WriteString("Earlier conversation:\n")
	for _, t := range a.history {
		fmt.Fprintf(&sb, "[%s] %s\n", t.role, t.content)
	}
	sb.WriteString("\n")
	sb.WriteString(prompt)
	return sb.String()
}

func (a *Agent) remember(prompt, answer string) {
	a.history = append(a.history,
		turn{role: "user", content: prompt},
		turn{role: "assistant", content: answer},
	)
	if len(a.history) > historyLimit {
		a.history = a.history[len(a.history)-historyLimit:]
	}
}

func isFoodQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range foodKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func foodNeedPrompt(query string) string {
	return fmt.Sprintf(`I need to find restaurants that can provide: %s

Look for restaurants that serve this type of food, could handle the
requested quantity, have food donation programs, and are accessible for
food bank pickup.`, query)
}

func restaurantPrompt(query string) string {
	return fmt.Sprintf(`I need information about: %s

Look for the official website and contact info, food donation policies,
location and hours, and any food bank partnerships.`, query)
}
