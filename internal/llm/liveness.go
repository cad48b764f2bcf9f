package llm

import (
	"context"
	"strings"
)

const maxLivenessText = 1500

// IsAlive asks the model whether the page text looks like a live site
// rather than a parking, for-sale or not-found page.
func (c *OpenAIClient) IsAlive(ctx context.Context, url string, text string) (bool, error) {
	if runes := []rune(text); len(runes) > maxLivenessText {
		text = string(runes[:maxLivenessText])
	}

	response, err := c.callLLM(ctx, c.prompts.Liveness, struct{ URL, Text string }{url, text})
	if err != nil {
		return false, err
	}

	var parsed struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(response, &parsed); err != nil {
		return false, err
	}
	return !strings.EqualFold(strings.TrimSpace(parsed.Status), "dead"), nil
}
