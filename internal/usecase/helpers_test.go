package usecase_test

import (
	"time"

	"github.com/fairyhunter13/trendpulse/internal/domain"
	"github.com/fairyhunter13/trendpulse/internal/domain/mocks"
	"github.com/fairyhunter13/trendpulse/internal/service/retry"
	"github.com/fairyhunter13/trendpulse/internal/usecase"
)

var testModels = usecase.Models{Text: "text-model", Chat: "chat-model", Image: "image-model", Video: "video-model"}

// newGen returns a generator with a millisecond retry schedule.
func newGen(m *mocks.MockGenAIClient) *usecase.Generator {
	return usecase.NewGenerator(m, testModels, retry.Policy{MaxRetries: 2, BaseDelay: time.Millisecond})
}

func quotaErr() error {
	return &domain.UpstreamError{Operation: "generateContent", StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}
}

func text(s string) domain.TextResponse { return domain.TextResponse{Text: s} }

const twoTrendsJSON = "```json\n" + `{"trends":[
 {"id":"model-id","name":"Silent Disco","description":"d","viralityScore":91,"category":"","hashtags":["#a"],"exampleIdea":"x","ugcExamples":["u"]},
 {"name":"Desk Setup","description":"d2","viralityScore":70,"category":"Tech","exampleIdea":"y"},
]}` + "\n```"
