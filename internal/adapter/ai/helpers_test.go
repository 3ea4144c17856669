package ai

import (
	"github.com/fairyhunter13/trendpulse/internal/domain"
)

// stubGenAI is a hand-written domain.GenAIClient whose behaviour is set per test.
type stubGenAI struct {
	textFn     func(req domain.TextRequest) (domain.TextResponse, error)
	imageFn    func(req domain.ImageRequest) (domain.GeneratedImage, error)
	startFn    func(req domain.VideoRequest) (string, error)
	pollFn     func(name string) (domain.VideoOperation, error)
	downloadFn func(uri string) ([]byte, error)
	calls      int
}

func (s *stubGenAI) GenerateText(_ domain.Context, req domain.TextRequest) (domain.TextResponse, error) {
	s.calls++
	if s.textFn == nil {
		return domain.TextResponse{Text: "{}"}, nil
	}
	return s.textFn(req)
}

func (s *stubGenAI) GenerateImage(_ domain.Context, req domain.ImageRequest) (domain.GeneratedImage, error) {
	s.calls++
	if s.imageFn == nil {
		return domain.GeneratedImage{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}}, nil
	}
	return s.imageFn(req)
}

func (s *stubGenAI) StartVideo(_ domain.Context, req domain.VideoRequest) (string, error) {
	s.calls++
	if s.startFn == nil {
		return "operations/1", nil
	}
	return s.startFn(req)
}

func (s *stubGenAI) PollVideo(_ domain.Context, name string) (domain.VideoOperation, error) {
	s.calls++
	if s.pollFn == nil {
		return domain.VideoOperation{Name: name, Done: true, URI: "https://files/video"}, nil
	}
	return s.pollFn(name)
}

func (s *stubGenAI) Download(_ domain.Context, uri string) ([]byte, error) {
	s.calls++
	if s.downloadFn == nil {
		return []byte("mp4"), nil
	}
	return s.downloadFn(uri)
}
