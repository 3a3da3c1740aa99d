// Package geminirest talks to the Gemini generateContent REST endpoint
// directly over net/http. It is interchangeable with the SDK-backed gemini
// package.
package geminirest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/roomstyler/internal/images"
	"github.com/lehigh-university-libraries/roomstyler/internal/prompts"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
)

const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com"
	DefaultDetectModel = "gemini-2.5-flash"
	DefaultImageModel  = "gemini-2.5-flash-image"
)

// Client is a providers.Client over raw HTTP
type Client struct {
	config     providers.Config
	httpClient *http.Client
}

// New returns a new REST client
func New(config providers.Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", providers.ErrMissingAPIKey)
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.DetectModel == "" {
		config.DetectModel = DefaultDetectModel
	}
	if config.ImageModel == "" {
		config.ImageModel = DefaultImageModel
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type schema struct {
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Items       *schema `json:"items,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType   string   `json:"responseMimeType,omitempty"`
	ResponseSchema     *schema  `json:"responseSchema,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func imagePart(img *images.Ref) part {
	return part{InlineData: &inlineData{MIMEType: img.MIMEType(), Data: img.Base64()}}
}

// DetectObjects lists editable furnishings in the room
func (c *Client) DetectObjects(ctx context.Context, img *images.Ref) ([]string, error) {
	return c.detect(ctx, img, providers.ScanObjects, "An editable object in the room.")
}

// DetectStructuralElements lists floor, ceiling and walls
func (c *Client) DetectStructuralElements(ctx context.Context, img *images.Ref) ([]string, error) {
	return c.detect(ctx, img, providers.ScanStructure, "A major structural element of the room (wall, floor, ceiling).")
}

func (c *Client) detect(ctx context.Context, img *images.Ref, kind providers.ScanKind, itemDescription string) ([]string, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: image is required", providers.ErrInvalidRequest)
	}

	body := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{imagePart(img), {Text: prompts.Scan(kind)}},
		}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema: &schema{
				Type:  "ARRAY",
				Items: &schema{Type: "STRING", Description: itemDescription},
			},
		},
	}

	resp, err := c.generateContent(ctx, c.config.DetectModel, body)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}

	labels := providers.ParseLabels(text.String())
	slog.Info("Detected room labels", "kind", kind, "model", c.config.DetectModel, "count", len(labels))
	return labels, nil
}

// Generate runs req.OutputCount independent image generations in parallel
func (c *Client) Generate(ctx context.Context, req providers.GenerationRequest) ([]*images.Ref, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	parts := []part{imagePart(req.Image)}
	if req.Target != nil && req.Target.Reference != nil {
		parts = append(parts, imagePart(req.Target.Reference))
	}
	parts = append(parts, part{Text: prompts.Generation(req)})

	body := generateRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"IMAGE"}},
	}

	slog.Info("Generating designs", "intent", req.Intent, "outputs", req.OutputCount, "model", c.config.ImageModel)

	return providers.FanOut(ctx, req.OutputCount, func(ctx context.Context, slot int) (*images.Ref, error) {
		resp, err := c.generateContent(ctx, c.config.ImageModel, body)
		if err != nil {
			return nil, err
		}
		return firstImage(resp)
	})
}

func (c *Client) generateContent(ctx context.Context, model string, body generateRequest) (*generateResponse, error) {
	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.config.BaseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %w", providers.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: received non-200 status code: %d - %s", providers.ErrTransport, resp.StatusCode, string(respBody))
	}

	var response generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response body: %w", providers.ErrTransport, err)
	}
	return &response, nil
}

func firstImage(resp *generateResponse) (*images.Ref, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, nil
	}

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode inline image: %w", err)
		}
		return images.New(data)
	}
	return nil, nil
}
