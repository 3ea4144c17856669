package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

// Response schemas handed to the model. Required fields are enforced
// upstream; the server only decodes.

func str() *domain.Schema { return &domain.Schema{Type: domain.TypeString} }

func strList() *domain.Schema {
	return &domain.Schema{Type: domain.TypeArray, Items: str()}
}

func enum(values ...string) *domain.Schema {
	return &domain.Schema{Type: domain.TypeString, Enum: values}
}

var trendSchema = &domain.Schema{
	Type: domain.TypeObject,
	Properties: map[string]*domain.Schema{
		"trends": {
			Type: domain.TypeArray,
			Items: &domain.Schema{
				Type: domain.TypeObject,
				Properties: map[string]*domain.Schema{
					"name":          str(),
					"description":   str(),
					"viralityScore": {Type: domain.TypeInteger},
					"category":      str(),
					"soundName":     str(),
					"hashtags":      strList(),
					"exampleIdea":   str(),
					"ugcExamples":   strList(),
				},
				Required: []string{"name", "description", "viralityScore", "category", "hashtags", "exampleIdea", "ugcExamples"},
			},
		},
	},
}

var videoScriptSchema = &domain.Schema{
	Type: domain.TypeObject,
	Properties: map[string]*domain.Schema{
		"title": str(),
		"hook":  str(),
		"scenes": {
			Type: domain.TypeArray,
			Items: &domain.Schema{
				Type: domain.TypeObject,
				Properties: map[string]*domain.Schema{
					"visual":   str(),
					"audio":    str(),
					"duration": str(),
				},
			},
		},
		"cta": str(),
	},
}

var contentPackageSchema = &domain.Schema{
	Type: domain.TypeObject,
	Properties: map[string]*domain.Schema{
		"script":        videoScriptSchema,
		"caption":       str(),
		"hashtags":      strList(),
		"thumbnailText": str(),
	},
}

var predictionSchema = &domain.Schema{
	Type: domain.TypeObject,
	Properties: map[string]*domain.Schema{
		"predictions": {
			Type: domain.TypeArray,
			Items: &domain.Schema{
				Type: domain.TypeObject,
				Properties: map[string]*domain.Schema{
					"topic":           str(),
					"reasoning":       str(),
					"predictionScore": {Type: domain.TypeInteger},
					"estimatedViews":  str(),
					"momentum":        enum("rising", "peaking", "stable"),
					"concepts": {
						Type: domain.TypeArray,
						Items: &domain.Schema{
							Type: domain.TypeObject,
							Properties: map[string]*domain.Schema{
								"title":           str(),
								"effortLevel":     enum("Low", "Medium", "High"),
								"description":     str(),
								"hook":            str(),
								"audioSuggestion": str(),
							},
						},
					},
				},
			},
		},
	},
}

var visualAnalysisSchema = &domain.Schema{
	Type: domain.TypeObject,
	Properties: map[string]*domain.Schema{
		"score":           {Type: domain.TypeInteger, Description: "0-100"},
		"firstImpression": str(),
		"strengths":       strList(),
		"improvements":    strList(),
		"heatmapFocus": {
			Type: domain.TypeArray,
			Items: &domain.Schema{
				Type: domain.TypeObject,
				Properties: map[string]*domain.Schema{
					"x": {Type: domain.TypeNumber},
					"y": {Type: domain.TypeNumber},
				},
			},
		},
		"colorPsychology": str(),
		"ctrPrediction":   enum("Low", "Medium", "High", "Viral"),
	},
}

func trendPrompt(category string, lang domain.Language) string {
	return fmt.Sprintf(`Identify 6 ultra-current viral trends on TikTok for: %q.
Focus on what is happening THIS WEEK.
For each trend provide:
- Name & Description
- Virality Score (0-100)
- Specific Sound/Audio Name
- 5-7 Top Hashtags
- A main creative concept idea ("exampleIdea")
- 3 specific examples of User Generated Content (UGC) seen in this trend ("ugcExamples")
%s`, category, lang.Instruction())
}

func contentPackagePrompt(trendName, trendIdea string, lang domain.Language) string {
	return fmt.Sprintf(`Create a complete "Viral Content Package" for TikTok based on the trend %q.
Concept: %s.

1. Script: Fast-paced, max 30s.
2. Caption: Viral, engaging, asking for comments.
3. Hashtags: 5-7 potent tags (mix of broad and niche).
4. ThumbnailText: A clickbait text overlay (max 5 words) for the video cover.
%s`, trendName, trendIdea, lang.Instruction())
}

func scriptPrompt(trendName, trendIdea string, lang domain.Language) string {
	return fmt.Sprintf(`Write a viral TikTok script for the trend %q.
Concept: %s.
Keep it fast-paced, max 30s. Include a strong hook and call to action.
%s`, trendName, trendIdea, lang.Instruction())
}

func rewritePrompt(script domain.VideoScript, modifier domain.ScriptModifier, lang domain.Language) string {
	return fmt.Sprintf(`Rewrite the following TikTok script to be more %q.
Original Title: %s
Original Hook: %s
Maintain structure but change tone.
%s`, string(modifier), script.Title, script.Hook, lang.Instruction())
}

func thumbnailPrompt(description string) string {
	return fmt.Sprintf(`A high quality, photorealistic TikTok thumbnail background image representing: %s.
Bright colors, high contrast, 9:16 vertical aspect ratio, professional lighting, no text in the image.`, description)
}

func videoPrompt(description string) string {
	return "Vertical 9:16 TikTok Video. " + strings.TrimSpace(description)
}

func predictionPrompt(niche string, lang domain.Language) string {
	return fmt.Sprintf(`Act as a TikTok Algorithm Expert. Predict 3 breakout topics or trends for the niche %q that have high potential to go viral NEXT WEEK.
For each prediction: 1. Explain WHY. 2. Assign predictionScore (0-100). 3. Generate 3 content concepts.
%s`, niche, lang.Instruction())
}

func accountPrompt(username, extra string, lang domain.Language) string {
	return fmt.Sprintf(`Search for TikTok profile %q. Analyze web presence. Context: %s
You MUST format response with markdown dividers. %s
Structure: [METRICS]...[/METRICS] [SUMMARY]...[/SUMMARY] [SWOT]...[/SWOT] [STRATEGY]...[/STRATEGY]
Inside [METRICS] use the lines "Followers:", "Engagement:" and "Niche:".
Inside [SWOT] use the labels STRENGTHS:, WEAKNESSES:, OPPORTUNITIES: and THREATS: each followed by "- " bullet lines.`,
		username, extra, lang.Instruction())
}

func comparePrompt(user1, user2 string, lang domain.Language) string {
	return fmt.Sprintf(`Compare TikTok accounts %q and %q. Determine winner.
%s Respond ONLY with valid JSON matching this structure:
{"winner": "", "winnerReason": "", "user1": {"username": "", "score": 0, "strength": ""}, "user2": {"username": "", "score": 0, "strength": ""},
"comparisonPoints": [{"metric": "", "user1Value": "", "user2Value": "", "advantage": "user1|user2|equal"}], "tacticalAdvice": ""}`,
		user1, user2, lang.Instruction())
}

func visualPrompt(lang domain.Language) string {
	return "Analyze this image as a TikTok Thumbnail. Provide Score, First Impression, Heatmap coords, Color Psych, CTR Prediction. " + lang.Instruction()
}

func chatInstruction(lang domain.Language) string {
	return "You are an expert TikTok Strategist. " + lang.Instruction()
}
