package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/plateful/plateful-server/database/models"
)

// ParseModelOutput validates the completion service's JSON against the
// requested schema. The model is untrusted input: unknown fields and
// wrong-typed values are rejected, missing optional arrays are coerced to
// empty, and a parse with no usable title is a failure.
func ParseModelOutput(raw string) (*models.ParsedRecipe, error) {
	raw = stripCodeFence(raw)

	var out modelRecipe
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("completion response is not valid recipe JSON: %w", err)
	}

	title := strings.TrimSpace(out.Title)
	if title == "" {
		return nil, errors.New("completion response is missing a recipe title")
	}

	parsed := &models.ParsedRecipe{
		Title:        title,
		Description:  strings.TrimSpace(out.Description),
		Ingredients:  make([]models.Ingredient, 0, len(out.Ingredients)),
		Instructions: make([]string, 0, len(out.Instructions)),
		PrepTime:     strings.TrimSpace(out.PrepTime),
		CookTime:     strings.TrimSpace(out.CookTime),
		TotalTime:    strings.TrimSpace(out.TotalTime),
		Servings:     strings.TrimSpace(out.Servings),
		Cuisine:      strings.TrimSpace(out.Cuisine),
		Category:     strings.TrimSpace(out.Category),
	}

	for _, ing := range out.Ingredients {
		item := strings.TrimSpace(ing.Item)
		if item == "" {
			continue
		}
		parsed.Ingredients = append(parsed.Ingredients, models.Ingredient{
			Item:   item,
			Amount: strings.TrimSpace(ing.Amount),
		})
	}

	for _, step := range out.Instructions {
		step = strings.TrimSpace(step)
		if step == "" {
			continue
		}
		parsed.Instructions = append(parsed.Instructions, step)
	}

	for _, tag := range out.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		parsed.Tags = append(parsed.Tags, tag)
	}

	return parsed, nil
}

// modelRecipe mirrors the schema requested in the prompt. It is the only
// shape accepted from the model.
type modelRecipe struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Ingredients  []modelIngredient `json:"ingredients"`
	Instructions []string          `json:"instructions"`
	PrepTime     string            `json:"prepTime"`
	CookTime     string            `json:"cookTime"`
	TotalTime    string            `json:"totalTime"`
	Servings     string            `json:"servings"`
	Cuisine      string            `json:"cuisine"`
	Category     string            `json:"category"`
	Tags         []string          `json:"tags"`
}

type modelIngredient struct {
	Item   string `json:"item"`
	Amount string `json:"amount"`
}

// stripCodeFence tolerates models that wrap JSON in a markdown fence despite
// the JSON response MIME type.
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
