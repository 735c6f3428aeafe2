// internal/summary/vertex.go
package summary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"starred-digest/internal/model"
)

// DefaultVertexModel is used when no model is configured.
const DefaultVertexModel = "gemini-2.0-flash-lite-001"

// VertexConfig selects the Vertex AI project and model.
type VertexConfig struct {
	Project  string
	Location string
	Model    string
}

// generator is the part of genai.GenerativeModel Vertex calls.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Vertex summarizes with a Gemini model on Vertex AI.
type Vertex struct {
	client *genai.Client
	model  generator
}

// NewVertex creates a Vertex summarizer. Credentials come from
// GOOGLE_APPLICATION_CREDENTIALS when set, else from the default chain.
func NewVertex(ctx context.Context, cfg VertexConfig) (*Vertex, error) {
	var opts []option.ClientOption
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}

	client, err := genai.NewClient(ctx, cfg.Project, cfg.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = DefaultVertexModel
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(0.3)
	model.SetMaxOutputTokens(256)

	return &Vertex{client: client, model: model}, nil
}

// Summarize implements Summarizer.
func (v *Vertex) Summarize(ctx context.Context, repo model.RepoRef, commits []model.CommitRecord) (string, error) {
	if len(commits) == 0 {
		return "", nil
	}

	resp, err := v.model.GenerateContent(ctx, genai.Text(Prompt(repo, commits)))
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	return responseText(resp)
}

// Close closes the Vertex AI client.
func (v *Vertex) Close() error {
	if v.client == nil {
		return nil
	}
	return v.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response generated")
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("unexpected response type")
	}
	return strings.TrimSpace(b.String()), nil
}
