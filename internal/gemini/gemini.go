package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
	"github.com/lehigh-university-libraries/roomstyler/internal/prompts"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
)

const (
	DefaultDetectModel = "gemini-2.5-flash"
	DefaultImageModel  = "gemini-2.5-flash-image"
)

// Gemini is a providers.Client backed by the Google Gemini SDK
type Gemini struct {
	client *genai.Client
	config providers.Config
}

// New returns a new Gemini provider. Close releases the underlying connection.
func New(ctx context.Context, config providers.Config) (*Gemini, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", providers.ErrMissingAPIKey)
	}
	if config.DetectModel == "" {
		config.DetectModel = DefaultDetectModel
	}
	if config.ImageModel == "" {
		config.ImageModel = DefaultImageModel
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	return &Gemini{client: client, config: config}, nil
}

// Close releases the SDK client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// DetectObjects lists editable furnishings in the room
func (g *Gemini) DetectObjects(ctx context.Context, img *images.Ref) ([]string, error) {
	return g.detect(ctx, img, providers.ScanObjects, "An editable object in the room.")
}

// DetectStructuralElements lists floor, ceiling and walls
func (g *Gemini) DetectStructuralElements(ctx context.Context, img *images.Ref) ([]string, error) {
	return g.detect(ctx, img, providers.ScanStructure, "A major structural element of the room (wall, floor, ceiling).")
}

func (g *Gemini) detect(ctx context.Context, img *images.Ref, kind providers.ScanKind, itemDescription string) ([]string, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: image is required", providers.ErrInvalidRequest)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	model := g.client.GenerativeModel(g.config.DetectModel)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeString, Description: itemDescription},
	}

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: img.MIMEType(), Data: img.Bytes()},
		genai.Text(prompts.Scan(kind)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate content: %w", providers.ErrTransport, err)
	}

	labels := providers.ParseLabels(responseText(resp))
	slog.Info("Detected room labels", "kind", kind, "model", g.config.DetectModel, "count", len(labels))
	return labels, nil
}

// Generate runs req.OutputCount independent image generations in parallel
func (g *Gemini) Generate(ctx context.Context, req providers.GenerationRequest) ([]*images.Ref, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	parts := []genai.Part{genai.Blob{MIMEType: req.Image.MIMEType(), Data: req.Image.Bytes()}}
	if req.Target != nil && req.Target.Reference != nil {
		ref := req.Target.Reference
		parts = append(parts, genai.Blob{MIMEType: ref.MIMEType(), Data: ref.Bytes()})
	}
	parts = append(parts, genai.Text(prompts.Generation(req)))

	slog.Info("Generating designs", "intent", req.Intent, "outputs", req.OutputCount, "model", g.config.ImageModel)

	return providers.FanOut(ctx, req.OutputCount, func(ctx context.Context, slot int) (*images.Ref, error) {
		ctx, cancel := g.withTimeout(ctx)
		defer cancel()

		model := g.client.GenerativeModel(g.config.ImageModel)
		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to generate design %d: %w", providers.ErrTransport, slot, err)
		}
		return firstImage(resp)
	})
}

func (g *Gemini) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.config.Timeout > 0 {
		return context.WithTimeout(ctx, g.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

// firstImage returns the first inline image of the first candidate, or nil
func firstImage(resp *genai.GenerateContentResponse) (*images.Ref, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		blob, ok := part.(genai.Blob)
		if !ok || len(blob.Data) == 0 {
			continue
		}
		ref, err := images.New(blob.Data)
		if err != nil {
			return nil, fmt.Errorf("unusable image from gemini (%s): %w", blob.MIMEType, err)
		}
		return ref, nil
	}
	return nil, nil
}
