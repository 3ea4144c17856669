package usecase

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/fairyhunter13/trendpulse/internal/domain"
	"github.com/fairyhunter13/trendpulse/pkg/textx"
)

var swotLabels = []string{"STRENGTHS", "WEAKNESSES", "OPPORTUNITIES", "THREATS"}

// AnalysisService analyses accounts, thumbnails and upcoming topics.
type AnalysisService struct {
	Gen *Generator
}

// NewAnalysisService constructs an AnalysisService.
func NewAnalysisService(gen *Generator) *AnalysisService {
	return &AnalysisService{Gen: gen}
}

// AnalyzeAccount runs a search-grounded profile analysis and parses the
// sectioned answer. Missing sections fall back to placeholders; the whole
// answer becomes the strategy when no STRATEGY section is present.
func (s *AnalysisService) AnalyzeAccount(ctx domain.Context, username, extra string, lang domain.Language) (domain.AccountAnalysis, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.AccountAnalysis{}, fmt.Errorf("%w: username required", domain.ErrInvalidArgument)
	}
	resp, err := s.Gen.Text(ctx, "analysis.account", domain.TextRequest{
		Model:        s.Gen.Models.Text,
		Prompt:       accountPrompt(username, extra, lang),
		GoogleSearch: true,
	})
	if err != nil {
		return domain.AccountAnalysis{}, err
	}
	return parseAccountAnalysis(username, resp), nil
}

func parseAccountAnalysis(username string, resp domain.TextResponse) domain.AccountAnalysis {
	text := resp.Text
	metrics := textx.SectionOr(text, "METRICS", "")
	swot := textx.SectionOr(text, "SWOT", "")

	return domain.AccountAnalysis{
		Username:       username,
		ProfileSummary: textx.SectionOr(text, "SUMMARY", "N/A"),
		Metrics: domain.AccountMetrics{
			Followers:  textx.FieldOr(metrics, "Followers", "N/A"),
			Engagement: textx.FieldOr(metrics, "Engagement", "N/A"),
			Niche:      textx.FieldOr(metrics, "Niche", "Unknown"),
		},
		SWOT: domain.SWOT{
			Strengths:     textx.ExtractLabeledList(swot, "STRENGTHS", swotLabels...),
			Weaknesses:    textx.ExtractLabeledList(swot, "WEAKNESSES", swotLabels...),
			Opportunities: textx.ExtractLabeledList(swot, "OPPORTUNITIES", swotLabels...),
			Threats:       textx.ExtractLabeledList(swot, "THREATS", swotLabels...),
		},
		Strategy: textx.SectionOr(text, "STRATEGY", text),
		Sources:  dedupeSources(resp.Sources),
	}
}

// dedupeSources keeps the first source for each URI, in order.
func dedupeSources(in []domain.Source) []domain.Source {
	out := make([]domain.Source, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, src := range in {
		if _, ok := seen[src.URI]; ok {
			continue
		}
		seen[src.URI] = struct{}{}
		out = append(out, src)
	}
	return out
}

// CompareAccounts pits two accounts against each other.
func (s *AnalysisService) CompareAccounts(ctx domain.Context, user1, user2 string, lang domain.Language) (domain.CompetitorComparison, error) {
	user1, user2 = strings.TrimSpace(user1), strings.TrimSpace(user2)
	if user1 == "" || user2 == "" {
		return domain.CompetitorComparison{}, fmt.Errorf("%w: both usernames required", domain.ErrInvalidArgument)
	}
	var out domain.CompetitorComparison
	err := s.Gen.JSON(ctx, "analysis.compare", domain.TextRequest{
		Model:        s.Gen.Models.Text,
		Prompt:       comparePrompt(user1, user2, lang),
		GoogleSearch: true,
	}, &out)
	if err != nil {
		return domain.CompetitorComparison{}, err
	}
	if out.ComparisonPoints == nil {
		out.ComparisonPoints = []domain.ComparisonPoint{}
	}
	return out, nil
}

// AnalyzeVisual scores a thumbnail. image is a data URL or bare base64; the
// payload must sniff as an image.
func (s *AnalysisService) AnalyzeVisual(ctx domain.Context, image string, lang domain.Language) (domain.VisualAnalysis, error) {
	data, err := decodeDataURL(image)
	if err != nil {
		return domain.VisualAnalysis{}, err
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return domain.VisualAnalysis{}, fmt.Errorf("%w: unsupported media type %s", domain.ErrInvalidArgument, mt.String())
	}

	var out domain.VisualAnalysis
	err = s.Gen.JSON(ctx, "analysis.visual", domain.TextRequest{
		Model:          s.Gen.Models.Text,
		Prompt:         visualPrompt(lang),
		Images:         []domain.InlineImage{{MIMEType: mt.String(), Data: data}},
		ResponseSchema: visualAnalysisSchema,
	}, &out)
	if err != nil {
		return domain.VisualAnalysis{}, err
	}
	out.Strengths = orEmpty(out.Strengths)
	out.Improvements = orEmpty(out.Improvements)
	if out.HeatmapFocus == nil {
		out.HeatmapFocus = []domain.FocusPoint{}
	}
	return out, nil
}

func decodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: image required", domain.ErrInvalidArgument)
	}
	if strings.HasPrefix(s, "data:") {
		i := strings.IndexByte(s, ',')
		if i < 0 || !strings.HasSuffix(s[:i], ";base64") {
			return nil, fmt.Errorf("%w: image must be a base64 data URL", domain.ErrInvalidArgument)
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64", domain.ErrInvalidArgument)
	}
	return data, nil
}

// PredictViral forecasts three breakout topics for a niche.
func (s *AnalysisService) PredictViral(ctx domain.Context, niche string, lang domain.Language) ([]domain.ViralPrediction, error) {
	niche = strings.TrimSpace(niche)
	if niche == "" {
		return nil, fmt.Errorf("%w: niche required", domain.ErrInvalidArgument)
	}
	var out struct {
		Predictions []domain.ViralPrediction `json:"predictions"`
	}
	err := s.Gen.JSON(ctx, "analysis.predict", domain.TextRequest{
		Model:          s.Gen.Models.Text,
		Prompt:         predictionPrompt(niche, lang),
		ResponseSchema: predictionSchema,
	}, &out)
	if err != nil {
		return nil, err
	}
	preds := make([]domain.ViralPrediction, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		p.ID = "pred-" + uuid.NewString()
		preds = append(preds, p)
	}
	return preds, nil
}
