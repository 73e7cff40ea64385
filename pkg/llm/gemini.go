package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newGeminiCaller(client *http.Client, apiKey, model, baseURL string) CallFunc {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", baseURL, url.PathEscape(model))

	return func(ctx context.Context, prompt string) (string, error) {
		data, err := json.Marshal(geminiRequest{
			Contents: []geminiContent{
				{Role: "user", Parts: []geminiPart{{Text: prompt}}},
			},
		})
		if err != nil {
			return "", fmt.Errorf("marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("x-goog-api-key", apiKey)

		body, err := doJSON(client, req, "gemini")
		if err != nil {
			return "", err
		}

		var result geminiResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return "", fmt.Errorf("unmarshal response: %w", err)
		}

		if result.Error != nil {
			return "", fmt.Errorf("gemini error: %s", result.Error.Message)
		}

		if len(result.Candidates) == 0 {
			return "", fmt.Errorf("gemini: %w", ErrNoContent)
		}

		var sb strings.Builder
		for _, p := range result.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() == 0 {
			return "", fmt.Errorf("gemini: %w", ErrNoContent)
		}

		return sb.String(), nil
	}
}
