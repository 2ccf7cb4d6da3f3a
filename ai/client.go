package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/plateful/plateful-server/database/models"

	"google.golang.org/genai"
)

// ErrNotConfigured is returned when no completion-service credential is
// available. Jobs record it into the owning record instead of crashing.
var ErrNotConfigured = errors.New("completion service credential is not configured")

// CompletionService is the single external collaborator of the background
// jobs: one call in, one JSON or plain-text response out.
type CompletionService interface {
	ParseRecipe(ctx context.Context, recipeText string) (*models.ParsedRecipe, error)
	SummarizeNote(ctx context.Context, title, content string) (string, error)
}

const parseSystemInstruction = "You are a helpful assistant designed to parse recipes and output JSON. " +
	"Extract as much information as possible from the recipe text. " +
	"If a field is not found, omit it or use an empty array for array fields."

const summarySystemInstruction = "You summarize personal notes. " +
	"Reply with two or three plain sentences capturing the note's key points. No preamble, no markdown."

// Client talks to the Gemini API. A nil Client (no credential) fails every
// call with ErrNotConfigured without touching the network.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

func (c *Client) ParseRecipe(ctx context.Context, recipeText string) (*models.ParsedRecipe, error) {
	if c == nil || c.client == nil {
		return nil, ErrNotConfigured
	}

	prompt := buildParsePrompt(recipeText)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(parseSystemInstruction, genai.RoleUser),
	})
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, errors.New("completion service returned an empty response")
	}

	return ParseModelOutput(text)
}

func (c *Client) SummarizeNote(ctx context.Context, title, content string) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrNotConfigured
	}

	prompt := fmt.Sprintf("Summarize the following note.\n\nTitle: %s\n\n%s", title, content)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(summarySystemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	summary := strings.TrimSpace(resp.Text())
	if summary == "" {
		return "", errors.New("completion service returned an empty summary")
	}
	return summary, nil
}

func buildParsePrompt(recipeText string) string {
	return `Parse the following recipe text and extract structured information. Return a JSON object with these fields:
- title: string (recipe name)
- description: string (brief description, optional)
- ingredients: array of objects with {item: string, amount: string}
- instructions: array of strings (numbered steps)
- prepTime: string (e.g., "15 minutes", optional)
- cookTime: string (e.g., "30 minutes", optional)
- totalTime: string (e.g., "45 minutes", optional)
- servings: string (e.g., "4 servings", optional)
- cuisine: string (e.g., "Italian", optional)
- category: string (e.g., "Dinner", "Dessert", optional)
- tags: array of strings (e.g., ["vegetarian", "quick"], optional)

Recipe text:
` + recipeText
}
