package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xtruder/bookmark-curator/internal/bookmarks"
)

// SuggestedCategories seed the top level of the taxonomy.
var SuggestedCategories = []string{
	"News", "Social Media", "E-commerce", "Marketplace", "Education", "Finance",
	"Health", "Travel", "Entertainment", "Technology", "Science", "Art", "Sports",
	"Government", "Nonprofit", "Real Estate", "Automotive", "Jobs", "Pets",
	"Agriculture", "Music", "Fashion", "Food & Drink", "Business", "Weather",
	"Architecture", "Design", "Marketing", "Sales", "Legal", "Insurance",
	"Environment", "Community", "Tools", "Games", "Communication", "Other",
}

type classifyData struct {
	*bookmarks.Signature
	URL       string
	MaxDepth  int
	Suggested []string
	Existing  []string
}

type classifyResponse struct {
	Folder   string `json:"folder"`
	Category string `json:"category"`
}

// Classify asks the model for a folder path for the record. existing lists
// the folders chosen so far, so the model can reuse them.
func (c *OpenAIClient) Classify(ctx context.Context, r *bookmarks.Record, existing []string, maxDepth int) (bookmarks.FolderPath, error) {
	var sig bookmarks.Signature
	if r.Signature != nil {
		sig = *r.Signature
	}
	if sig.Title == "" {
		sig.Title = r.Title
	}

	slog.Debug("classifying bookmark", "url", r.URL, "model", c.model)
	response, err := c.callLLM(ctx, c.prompts.Classify, classifyData{
		Signature: &sig,
		URL:       r.URL,
		MaxDepth:  maxDepth,
		Suggested: SuggestedCategories,
		Existing:  existing,
	})
	if err != nil {
		return nil, err
	}

	var parsed classifyResponse
	if err := decodeJSON(response, &parsed); err != nil {
		return nil, err
	}

	folder := parsed.Folder
	if folder == "" {
		folder = parsed.Category
	}
	path := bookmarks.ParseFolderPath(folder)
	if len(path) == 0 {
		return nil, fmt.Errorf("model returned no folder: %q", response)
	}
	return path, nil
}

// decodeJSON reads the first JSON object found in a model response.
func decodeJSON(response string, v any) error {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end < start {
		return fmt.Errorf("no JSON object in model response: %q", response)
	}
	if err := json.Unmarshal([]byte(response[start:end+1]), v); err != nil {
		return fmt.Errorf("invalid JSON in model response: %w", err)
	}
	return nil
}
