// Package ai drafts product copy with Gemini.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/01moynul/tg-storefront/internal/models"
)

const lookupTool = "get_product"

// maxDescription bounds the drafted text; the catalog column holds 4000.
const maxDescription = 1000

// ProductLookup is the read-only catalog access the model may use.
type ProductLookup interface {
	Get(ctx context.Context, sku string) (*models.Product, error)
}

// AIService holds the Gemini client and the catalog it may read.
type AIService struct {
	client   *genai.Client
	model    string
	products ProductLookup
	log      *slog.Logger
}

// NewAIService initializes the Gemini client.
func NewAIService(ctx context.Context, apiKey, model string, products ProductLookup, log *slog.Logger) (*AIService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &AIService{client: client, model: model, products: products, log: log}, nil
}

// Close releases the Gemini client.
func (s *AIService) Close() error {
	return s.client.Close()
}

// DraftDescription asks the model for a short storefront description of
// sku. The model reads the product through the get_product tool, so it
// never sees anything but catalog facts.
func (s *AIService) DraftDescription(ctx context.Context, sku string) (string, error) {
	// 1. --- Model & Tool ---
	model := s.client.GenerativeModel(s.model)
	model.Tools = []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        lookupTool,
			Description: "Returns the catalog facts (title, price, currency, category) of one product by sku.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"sku": {Type: genai.TypeString, Description: "The product sku."},
				},
				Required: []string{"sku"},
			},
		}},
	}}
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(`
			You write product descriptions for a small online shop.
			Always call get_product first. Use only the facts it returns.
			Answer with 2-3 plain sentences, no markdown, no prices.
		`)},
	}

	// 2. --- Chat ---
	cs := model.StartChat()
	res, err := cs.SendMessage(ctx, genai.Text("Write the description for sku "+sku))
	if err != nil {
		return "", fmt.Errorf("error sending message: %w", err)
	}

	// 3. --- Tool Loop ---
	for turn := 0; turn < 4; turn++ {
		if res.UsageMetadata != nil {
			s.log.Debug("gemini usage", "sku", sku, "tokens", res.UsageMetadata.TotalTokenCount)
		}
		if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("empty response from model")
		}

		part := res.Candidates[0].Content.Parts[0]
		call, ok := part.(genai.FunctionCall)
		if !ok {
			text, _ := part.(genai.Text)
			return CleanDraft(string(text))
		}
		if call.Name != lookupTool {
			return "", fmt.Errorf("unknown function: %s", call.Name)
		}

		requested, _ := call.Args["sku"].(string)
		s.log.Info("model requested product", "sku", requested)

		res, err = cs.SendMessage(ctx, genai.FunctionResponse{
			Name:     lookupTool,
			Response: s.lookup(ctx, requested),
		})
		if err != nil {
			return "", fmt.Errorf("tool response error: %w", err)
		}
	}
	return "", fmt.Errorf("model did not finish after tool calls")
}

func (s *AIService) lookup(ctx context.Context, sku string) map[string]any {
	p, err := s.products.Get(ctx, sku)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return ProductFacts(p)
}

// ProductFacts is the tool payload for p.
func ProductFacts(p *models.Product) map[string]any {
	facts := map[string]any{
		"sku":      p.SKU,
		"title":    p.Title,
		"price":    p.Price,
		"currency": p.Currency,
	}
	if p.Category != "" {
		facts["category"] = p.Category
	}
	if p.Description != "" {
		facts["current_description"] = p.Description
	}
	return facts
}

// CleanDraft trims model output and caps its length.
func CleanDraft(text string) (string, error) {
	text = strings.TrimSpace(strings.Trim(strings.TrimSpace(text), "`"))
	if text == "" {
		return "", fmt.Errorf("model returned no text")
	}
	if r := []rune(text); len(r) > maxDescription {
		text = strings.TrimSpace(string(r[:maxDescription]))
	}
	return text, nil
}
