package repo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/triagelab/feedlens/internal/models"
)

// FilterToolName is the function the NLU model is forced to call.
const FilterToolName = "filter_data"

const nluSystemPrompt = "You are an expert at filtering search parameters from user queries. " +
	"Given a user query, use the provided tool to filter the data."

// NLUClient extracts filter parameters from natural language through an
// OpenAI-compatible chat completions endpoint using a forced tool call.
type NLUClient struct {
	jsonClient
	model string
}

// NewNLUClient targets baseURL (for example https://api.openai.com/v1).
func NewNLUClient(baseURL, apiKey, model string, timeout time.Duration) *NLUClient {
	headers := http.Header{}
	if apiKey != "" {
		headers.Set("Authorization", "Bearer "+apiKey)
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &NLUClient{
		jsonClient: jsonClient{
			baseURL:    strings.TrimRight(baseURL, "/"),
			headers:    headers,
			httpClient: &http.Client{Timeout: timeout},
		},
		model: model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string         `json:"model"`
	Messages    []chatMessage  `json:"messages"`
	Tools       []any          `json:"tools"`
	ToolChoice  map[string]any `json:"tool_choice"`
	Temperature float64        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends query to the model and decodes the forced tool call's
// arguments. tags is the vocabulary the model may choose from.
func (c *NLUClient) Extract(ctx context.Context, query string, tags []string) (models.FilterPayload, error) {
	if c == nil {
		return models.FilterPayload{}, errors.New("nlu client not initialised")
	}
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: nluSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Given the user's query: '%s', filter the data using the provided tool.", query)},
		},
		Tools: []any{FilterTool(tags)},
		ToolChoice: map[string]any{
			"type":     "function",
			"function": map[string]string{"name": FilterToolName},
		},
	}

	data, err := c.postJSON(ctx, c.resolvePath("/chat/completions"), req)
	if err != nil {
		return models.FilterPayload{}, err
	}

	var resp chatResponse
	if err := decodeInto(data, &resp); err != nil {
		return models.FilterPayload{}, err
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return models.FilterPayload{}, fmt.Errorf("%w: no tool call in reply", ErrMalformedResponse)
	}
	call := resp.Choices[0].Message.ToolCalls[0].Function
	if call.Name != FilterToolName {
		return models.FilterPayload{}, fmt.Errorf("%w: unexpected tool %q", ErrMalformedResponse, call.Name)
	}

	var payload models.FilterPayload
	if err := decodeInto([]byte(call.Arguments), &payload); err != nil {
		return models.FilterPayload{}, err
	}
	return payload, nil
}

// FilterTool returns the function-calling schema of the filter tool.
func FilterTool(tags []string) map[string]any {
	enumArray := func(values []string, desc string) map[string]any {
		return map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string", "enum": values},
			"description": desc,
		}
	}
	rangeOf := func(itemType, desc string) map[string]any {
		return map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": itemType, "minimum": 0},
			"minItems":    2,
			"maxItems":    2,
			"description": desc,
		}
	}
	if tags == nil {
		tags = []string{}
	}

	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        FilterToolName,
			"description": "Filter feedback data based on various criteria.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text":       map[string]any{"type": "string", "description": "Free-text search over name and description."},
					"importance": enumArray(stringsOf(models.Importances()), "Filter by importance level."),
					"type":       enumArray(stringsOf(models.FeedbackTypes()), "Filter by feedback type."),
					"customer":   enumArray(stringsOf(models.Customers()), "Filter by customer name."),
					"date":       map[string]any{"type": "string", "format": "date", "description": "Filter by specific date (ISO format: YYYY-MM-DD)."},
					"date_range": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"from": map[string]any{"type": "string", "format": "date"},
							"to":   map[string]any{"type": "string", "format": "date"},
						},
						"description": "Filter by an inclusive range of dates.",
					},
					"importance_score": rangeOf("number", "Filter by importance score range [min, max]."),
					"customer_impact":  rangeOf("integer", "Filter by customer impact range [min, max]."),
					"tags":             enumArray(tags, "Filter by tags associated with the feedback."),
					"clear":            map[string]any{"type": "boolean", "description": "Set when the user asks to remove all filters."},
				},
				"additionalProperties": false,
			},
		},
	}
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
