// Package usecase contains application business logic services.
package usecase

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fairyhunter13/trendpulse/internal/adapter/ai"
	obs "github.com/fairyhunter13/trendpulse/internal/adapter/observability"
	"github.com/fairyhunter13/trendpulse/internal/domain"
	"github.com/fairyhunter13/trendpulse/internal/service/retry"
)

const mimeJSON = "application/json"

// Models names the upstream model used for each capability.
type Models struct {
	Text  string
	Chat  string
	Image string
	Video string
}

// Generator runs model calls under the quota retry policy and decodes
// their JSON output. All services share one instance.
type Generator struct {
	AI      domain.GenAIClient
	Models  Models
	Policy  retry.Policy
	Options []retry.Option
	cleaner *ai.ResponseCleaner
}

// NewGenerator constructs a Generator with its dependencies.
func NewGenerator(client domain.GenAIClient, models Models, policy retry.Policy, opts ...retry.Option) *Generator {
	return &Generator{AI: client, Models: models, Policy: policy, Options: opts, cleaner: ai.NewResponseCleaner()}
}

// Text performs one generateContent call with retries.
func (g *Generator) Text(ctx domain.Context, op string, req domain.TextRequest) (domain.TextResponse, error) {
	ctx, span := obs.StartSpan(ctx, "usecase."+op)
	defer span.End()
	span.SetAttributes(attribute.String("ai.model", req.Model))

	resp, err := retry.Do(ctx, op, g.Policy, func(ctx domain.Context) (domain.TextResponse, error) {
		return g.AI.GenerateText(ctx, req)
	}, g.Options...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return domain.TextResponse{}, fmt.Errorf("op=usecase.%s: %w", op, err)
	}
	return resp, nil
}

// JSON performs a generateContent call and decodes the cleaned response into dst.
func (g *Generator) JSON(ctx domain.Context, op string, req domain.TextRequest, dst any) error {
	if req.ResponseMIMEType == "" {
		req.ResponseMIMEType = mimeJSON
	}
	resp, err := g.Text(ctx, op, req)
	if err != nil {
		return err
	}
	if err := g.cleaner.Decode(resp.Text, dst); err != nil {
		return fmt.Errorf("op=usecase.%s: %w", op, err)
	}
	return nil
}

// Image performs one image generation call with the given retry policy.
func (g *Generator) Image(ctx domain.Context, op string, p retry.Policy, req domain.ImageRequest) (domain.GeneratedImage, error) {
	ctx, span := obs.StartSpan(ctx, "usecase."+op)
	defer span.End()

	img, err := retry.Do(ctx, op, p, func(ctx domain.Context) (domain.GeneratedImage, error) {
		return g.AI.GenerateImage(ctx, req)
	}, g.Options...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "image failed")
		return domain.GeneratedImage{}, fmt.Errorf("op=usecase.%s: %w", op, err)
	}
	return img, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
