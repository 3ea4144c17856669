package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstream          = errors.New("upstream error")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// Language selects the output language requested from the model.
type Language string

const (
	LanguageDE Language = "de"
	LanguageEN Language = "en"
)

// ParseLanguage maps free input to a supported language, defaulting to English.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LanguageDE)) {
		return LanguageDE
	}
	return LanguageEN
}

// Instruction returns the output-language directive appended to prompts.
func (l Language) Instruction() string {
	if l == LanguageDE {
		return "IMPORTANT: Output content strictly in German."
	}
	return "IMPORTANT: Output content strictly in English."
}

// Trend categories offered by the client and scanned by the worker.
const (
	CategoryGeneral   = "Allgemein & Viral"
	CategoryDance     = "Tanz & Musik"
	CategoryTech      = "Technik & AI"
	CategoryBusiness  = "Business & Finanzen"
	CategoryComedy    = "Comedy & Skits"
	CategoryEducation = "Wissen & Tipps"
	CategoryLifestyle = "Lifestyle & Vlog"
)

// DefaultCategories lists every built-in trend category in display order.
func DefaultCategories() []string {
	return []string{CategoryGeneral, CategoryDance, CategoryTech, CategoryBusiness, CategoryComedy, CategoryEducation, CategoryLifestyle}
}

type Trend struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	ViralityScore int      `json:"viralityScore"`
	Category      string   `json:"category"`
	SoundName     string   `json:"soundName,omitempty"`
	Hashtags      []string `json:"hashtags"`
	ExampleIdea   string   `json:"exampleIdea"`
	UGCExamples   []string `json:"ugcExamples"`
}

type Scene struct {
	Visual   string `json:"visual"`
	Audio    string `json:"audio"`
	Duration string `json:"duration"`
}

type VideoScript struct {
	Title  string  `json:"title"`
	Hook   string  `json:"hook"`
	Scenes []Scene `json:"scenes"`
	CTA    string  `json:"cta"`
}

// ScriptModifier names the tone a script rewrite should take.
type ScriptModifier string

const (
	ModifierFunny         ScriptModifier = "funny"
	ModifierGenZ          ScriptModifier = "genz"
	ModifierControversial ScriptModifier = "controversial"
	ModifierProfessional  ScriptModifier = "professional"
	ModifierShorter       ScriptModifier = "shorter"
)

type ContentPackage struct {
	Script         VideoScript `json:"script"`
	Caption        string      `json:"caption"`
	Hashtags       []string    `json:"hashtags"`
	ThumbnailText  string      `json:"thumbnailText"`
	GeneratedImage string      `json:"generatedImage,omitempty"`
	GeneratedVideo string      `json:"generatedVideo,omitempty"`
}

type AccountMetrics struct {
	Followers  string `json:"followers"`
	Engagement string `json:"engagement"`
	Niche      string `json:"niche"`
}

type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// Source is a web page the model cited while grounding its answer.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type AccountAnalysis struct {
	Username       string         `json:"username"`
	ProfileSummary string         `json:"profileSummary"`
	Metrics        AccountMetrics `json:"metrics"`
	SWOT           SWOT           `json:"swot"`
	Strategy       string         `json:"strategy"`
	Sources        []Source       `json:"sources"`
}

type CompetitorScore struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
	Strength string `json:"strength"`
}

type ComparisonPoint struct {
	Metric     string `json:"metric"`
	User1Value string `json:"user1Value"`
	User2Value string `json:"user2Value"`
	Advantage  string `json:"advantage"`
}

type CompetitorComparison struct {
	Winner           string            `json:"winner"`
	WinnerReason     string            `json:"winnerReason"`
	User1            CompetitorScore   `json:"user1"`
	User2            CompetitorScore   `json:"user2"`
	ComparisonPoints []ComparisonPoint `json:"comparisonPoints"`
	TacticalAdvice   string            `json:"tacticalAdvice"`
}

type ViralConcept struct {
	Title           string `json:"title"`
	EffortLevel     string `json:"effortLevel"`
	Description     string `json:"description"`
	Hook            string `json:"hook"`
	AudioSuggestion string `json:"audioSuggestion"`
}

type ViralPrediction struct {
	ID              string         `json:"id"`
	Topic           string         `json:"topic"`
	Reasoning       string         `json:"reasoning"`
	PredictionScore int            `json:"predictionScore"`
	EstimatedViews  string         `json:"estimatedViews"`
	Momentum        string         `json:"momentum"`
	Concepts        []ViralConcept `json:"concepts,omitempty"`
}

type FocusPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type VisualAnalysis struct {
	Score           int          `json:"score"`
	FirstImpression string       `json:"firstImpression"`
	Strengths       []string     `json:"strengths"`
	Improvements    []string     `json:"improvements"`
	HeatmapFocus    []FocusPoint `json:"heatmapFocus"`
	ColorPsychology string       `json:"colorPsychology"`
	CTRPrediction   string       `json:"ctrPrediction"`
}

// Chat roles as understood by the model API.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

type ChatMessage struct {
	Role      string `json:"role" validate:"required,oneof=user model"`
	Text      string `json:"text" validate:"required"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// ArchivedTrend is a trend captured by a scan and stored for later reads.
type ArchivedTrend struct {
	Trend
	Language  Language  `json:"language"`
	ScannedAt time.Time `json:"scannedAt"`
}

// ScanEvent is published once per successfully scanned category.
type ScanEvent struct {
	Category   string    `json:"category"`
	Language   Language  `json:"language"`
	TrendCount int       `json:"trendCount"`
	ScannedAt  time.Time `json:"scannedAt"`
}

// Ports

// GenAIClient is the external generative model API.
type GenAIClient interface {
	GenerateText(ctx Context, req TextRequest) (TextResponse, error)
	GenerateImage(ctx Context, req ImageRequest) (GeneratedImage, error)
	StartVideo(ctx Context, req VideoRequest) (string, error)
	PollVideo(ctx Context, operation string) (VideoOperation, error)
	Download(ctx Context, uri string) ([]byte, error)
}

// TrendArchive persists scanned trends.
type TrendArchive interface {
	SaveBatch(ctx Context, trends []ArchivedTrend) error
	Latest(ctx Context, category string, limit int) ([]ArchivedTrend, error)
}

// ScanPublisher announces completed category scans.
type ScanPublisher interface {
	PublishScan(ctx Context, ev ScanEvent) error
}

// Cache stores JSON-serialisable values with a TTL.
type Cache interface {
	Get(ctx Context, key string, dst any) (bool, error)
	Set(ctx Context, key string, v any, ttl time.Duration) error
}

// Context is an alias so that ports read uniformly across adapters.
type Context = context.Context
