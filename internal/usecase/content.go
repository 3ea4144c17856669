package usecase

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/trendpulse/internal/domain"
	"github.com/fairyhunter13/trendpulse/internal/observability"
	"github.com/fairyhunter13/trendpulse/internal/service/retry"
)

// Video is a rendered clip ready to stream to the client.
type Video struct {
	Data     []byte
	MIMEType string
}

// ContentService writes scripts and content packages and renders media.
type ContentService struct {
	Gen              *Generator
	ThumbnailRetries int
	PollInterval     time.Duration
}

// NewContentService constructs a ContentService.
func NewContentService(gen *Generator, thumbnailRetries int, pollInterval time.Duration) *ContentService {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &ContentService{Gen: gen, ThumbnailRetries: thumbnailRetries, PollInterval: pollInterval}
}

// GeneratePackage produces script, caption, hashtags and cover text for a trend.
func (s *ContentService) GeneratePackage(ctx domain.Context, trendName, trendIdea string, lang domain.Language) (domain.ContentPackage, error) {
	if strings.TrimSpace(trendName) == "" {
		return domain.ContentPackage{}, fmt.Errorf("%w: trendName required", domain.ErrInvalidArgument)
	}
	var pkg domain.ContentPackage
	req := domain.TextRequest{
		Model:          s.Gen.Models.Text,
		Prompt:         contentPackagePrompt(trendName, trendIdea, lang),
		ResponseSchema: contentPackageSchema,
	}
	if err := s.Gen.JSON(ctx, "content.package", req, &pkg); err != nil {
		return domain.ContentPackage{}, err
	}
	pkg.Hashtags = orEmpty(pkg.Hashtags)
	pkg.Script = normalizeScript(pkg.Script)
	return pkg, nil
}

// GenerateScript writes a standalone video script for a trend.
func (s *ContentService) GenerateScript(ctx domain.Context, trendName, trendIdea string, lang domain.Language) (domain.VideoScript, error) {
	if strings.TrimSpace(trendName) == "" {
		return domain.VideoScript{}, fmt.Errorf("%w: trendName required", domain.ErrInvalidArgument)
	}
	var script domain.VideoScript
	req := domain.TextRequest{
		Model:          s.Gen.Models.Text,
		Prompt:         scriptPrompt(trendName, trendIdea, lang),
		ResponseSchema: videoScriptSchema,
	}
	if err := s.Gen.JSON(ctx, "content.script", req, &script); err != nil {
		return domain.VideoScript{}, err
	}
	return normalizeScript(script), nil
}

// RewriteScript changes the tone of an existing script.
func (s *ContentService) RewriteScript(ctx domain.Context, script domain.VideoScript, modifier domain.ScriptModifier, lang domain.Language) (domain.VideoScript, error) {
	switch modifier {
	case domain.ModifierFunny, domain.ModifierGenZ, domain.ModifierControversial, domain.ModifierProfessional, domain.ModifierShorter:
	default:
		return domain.VideoScript{}, fmt.Errorf("%w: unknown modifier %q", domain.ErrInvalidArgument, modifier)
	}
	var out domain.VideoScript
	req := domain.TextRequest{
		Model:          s.Gen.Models.Text,
		Prompt:         rewritePrompt(script, modifier, lang),
		ResponseSchema: videoScriptSchema,
	}
	if err := s.Gen.JSON(ctx, "content.rewrite", req, &out); err != nil {
		return domain.VideoScript{}, err
	}
	return normalizeScript(out), nil
}

// GenerateThumbnail renders a 9:16 cover background and returns it as a data URL.
func (s *ContentService) GenerateThumbnail(ctx domain.Context, description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", fmt.Errorf("%w: description required", domain.ErrInvalidArgument)
	}
	img, err := s.Gen.Image(ctx, "content.thumbnail", s.Gen.Policy.WithMaxRetries(s.ThumbnailRetries), domain.ImageRequest{
		Model:       s.Gen.Models.Image,
		Prompt:      thumbnailPrompt(description),
		AspectRatio: "9:16",
		MIMEType:    "image/jpeg",
	})
	if err != nil {
		return "", err
	}
	mt := img.MIMEType
	if mt == "" {
		mt = mimetype.Detect(img.Data).String()
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}

// RenderVideo starts a video job, polls it until done and downloads the
// result. Only ctx bounds how long polling may take.
func (s *ContentService) RenderVideo(ctx domain.Context, description string) (Video, error) {
	if strings.TrimSpace(description) == "" {
		return Video{}, fmt.Errorf("%w: description required", domain.ErrInvalidArgument)
	}
	lg := observability.LoggerFromContext(ctx)

	name, err := retry.Do(ctx, "video.start", s.Gen.Policy, func(ctx domain.Context) (string, error) {
		return s.Gen.AI.StartVideo(ctx, domain.VideoRequest{
			Model:       s.Gen.Models.Video,
			Prompt:      videoPrompt(description),
			AspectRatio: "9:16",
			Resolution:  "720p",
		})
	}, s.Gen.Options...)
	if err != nil {
		return Video{}, fmt.Errorf("op=usecase.video.start: %w", err)
	}
	lg.Info("video job started", slog.String("operation", name))

	var op domain.VideoOperation
	for polls := 0; ; polls++ {
		var jobErr error
		op, err = retry.Do(ctx, "video.poll", s.Gen.Policy, func(ctx domain.Context) (domain.VideoOperation, error) {
			op, err := s.Gen.AI.PollVideo(ctx, name)
			if err != nil && op.Done {
				// the job itself failed; polling it again cannot change that
				jobErr = err
				return op, nil
			}
			return op, err
		}, s.Gen.Options...)
		if err != nil {
			return Video{}, fmt.Errorf("op=usecase.video.poll: %w", err)
		}
		if jobErr != nil {
			return Video{}, fmt.Errorf("op=usecase.video.job name=%s: %w", name, jobErr)
		}
		if op.Done {
			lg.Info("video job finished", slog.String("operation", name), slog.Int("polls", polls+1))
			break
		}
		t := time.NewTimer(s.PollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return Video{}, fmt.Errorf("op=usecase.video.poll: %w", ctx.Err())
		case <-t.C:
		}
	}

	data, err := retry.Do(ctx, "video.download", s.Gen.Policy, func(ctx domain.Context) ([]byte, error) {
		return s.Gen.AI.Download(ctx, op.URI)
	}, s.Gen.Options...)
	if err != nil {
		return Video{}, fmt.Errorf("op=usecase.video.download: %w", err)
	}
	return Video{Data: data, MIMEType: videoMIME(data)}, nil
}

// videoMIME sniffs the clip, falling back to MP4 which is what the model emits.
func videoMIME(data []byte) string {
	mt := mimetype.Detect(data)
	if strings.HasPrefix(mt.String(), "video/") {
		return mt.String()
	}
	return "video/mp4"
}

func normalizeScript(s domain.VideoScript) domain.VideoScript {
	if s.Scenes == nil {
		s.Scenes = []domain.Scene{}
	}
	return s
}
