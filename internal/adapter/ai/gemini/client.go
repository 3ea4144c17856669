// Package gemini implements domain.GenAIClient against the Google Generative
// Language REST API (Gemini text, Imagen image and Veo video models).
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/trendpulse/internal/adapter/observability"
	"github.com/fairyhunter13/trendpulse/internal/config"
	"github.com/fairyhunter13/trendpulse/internal/domain"
	obsctx "github.com/fairyhunter13/trendpulse/internal/observability"
)

const provider = "gemini"

// maxErrorBody bounds how much of a failed response is read for the error envelope.
const maxErrorBody = 64 << 10

// maxDownloadBytes caps a downloaded clip; Veo output is a few megabytes.
const maxDownloadBytes = 256 << 20

const apiKeyHeader = "x-goog-api-key"

// Client talks to the Generative Language API. It performs no retries;
// callers wrap it with the quota retry policy.
type Client struct {
	apiKey      string
	baseURL     string
	hc          *http.Client
	maxDownload int64
}

// New constructs a client with an otelhttp-instrumented transport.
func New(cfg config.Config) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("Gemini %s %s", r.Method, operationFromPath(r.URL.Path))
		}),
	)
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.GeminiBaseURL, "/"),
		hc: &http.Client{
			Timeout:       cfg.AIRequestTimeout,
			Transport:     transport,
			CheckRedirect: dropKeyOffHost,
		},
		maxDownload: maxDownloadBytes,
	}
}

// dropKeyOffHost strips the API key when a redirect leaves the original
// host. net/http only does that for Authorization and Cookie.
func dropKeyOffHost(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	if req.URL.Host != via[0].URL.Host {
		req.Header.Del(apiKeyHeader)
	}
	return nil
}

// wire types

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   *domain.Schema `json:"responseSchema,omitempty"`
}

type tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type generateContentRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	Tools             []tool            `json:"tools,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content           content `json:"content"`
		FinishReason      string  `json:"finishReason"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// GenerateText calls models/{model}:generateContent.
func (c *Client) GenerateText(ctx domain.Context, req domain.TextRequest) (domain.TextResponse, error) {
	body := generateContentRequest{}
	for _, m := range req.History {
		body.Contents = append(body.Contents, content{Role: m.Role, Parts: []part{{Text: m.Text}}})
	}
	user := content{Role: domain.RoleUser}
	for _, img := range req.Images {
		user.Parts = append(user.Parts, part{InlineData: &inlineData{
			MIMEType: img.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	user.Parts = append(user.Parts, part{Text: req.Prompt})
	body.Contents = append(body.Contents, user)

	if req.SystemInstruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}
	if req.ResponseMIMEType != "" || req.ResponseSchema != nil {
		body.GenerationConfig = &generationConfig{ResponseMIMEType: req.ResponseMIMEType, ResponseSchema: req.ResponseSchema}
	}
	if req.GoogleSearch {
		body.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}

	var out generateContentResponse
	if err := c.call(ctx, "generateContent", http.MethodPost, c.modelURL(req.Model, "generateContent"), body, &out); err != nil {
		return domain.TextResponse{}, err
	}
	if len(out.Candidates) == 0 {
		reason := "no candidates"
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + out.PromptFeedback.BlockReason
		}
		return domain.TextResponse{}, fmt.Errorf("op=gemini.GenerateText model=%s: %w: %s", req.Model, domain.ErrUpstream, reason)
	}

	cand := out.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	resp := domain.TextResponse{Text: sb.String()}
	if cand.GroundingMetadata != nil {
		for _, ch := range cand.GroundingMetadata.GroundingChunks {
			if ch.Web == nil || ch.Web.URI == "" {
				continue
			}
			resp.Sources = append(resp.Sources, domain.Source{Title: ch.Web.Title, URI: ch.Web.URI})
		}
	}
	if resp.Text == "" {
		return domain.TextResponse{}, fmt.Errorf("op=gemini.GenerateText model=%s: %w: empty text (finish reason %q)", req.Model, domain.ErrUpstream, cand.FinishReason)
	}
	return resp, nil
}

type predictRequest struct {
	Instances  []map[string]string `json:"instances"`
	Parameters map[string]any      `json:"parameters"`
}

// GenerateImage calls models/{model}:predict and returns the first image.
func (c *Client) GenerateImage(ctx domain.Context, req domain.ImageRequest) (domain.GeneratedImage, error) {
	params := map[string]any{"sampleCount": 1}
	if req.AspectRatio != "" {
		params["aspectRatio"] = req.AspectRatio
	}
	if req.MIMEType != "" {
		params["outputOptions"] = map[string]string{"mimeType": req.MIMEType}
	}
	body := predictRequest{
		Instances:  []map[string]string{{"prompt": req.Prompt}},
		Parameters: params,
	}

	var out struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MIMEType           string `json:"mimeType"`
		} `json:"predictions"`
	}
	if err := c.call(ctx, "predict", http.MethodPost, c.modelURL(req.Model, "predict"), body, &out); err != nil {
		return domain.GeneratedImage{}, err
	}
	for _, p := range out.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.BytesBase64Encoded)
		if err != nil {
			return domain.GeneratedImage{}, fmt.Errorf("op=gemini.GenerateImage: %w: %v", domain.ErrSchemaInvalid, err)
		}
		mt := p.MIMEType
		if mt == "" {
			mt = req.MIMEType
		}
		return domain.GeneratedImage{MIMEType: mt, Data: data}, nil
	}
	return domain.GeneratedImage{}, fmt.Errorf("op=gemini.GenerateImage model=%s: %w: no image returned", req.Model, domain.ErrUpstream)
}

// StartVideo calls models/{model}:predictLongRunning and returns the operation name.
func (c *Client) StartVideo(ctx domain.Context, req domain.VideoRequest) (string, error) {
	params := map[string]any{"sampleCount": 1}
	if req.AspectRatio != "" {
		params["aspectRatio"] = req.AspectRatio
	}
	if req.Resolution != "" {
		params["resolution"] = req.Resolution
	}
	body := predictRequest{
		Instances:  []map[string]string{{"prompt": req.Prompt}},
		Parameters: params,
	}
	var out struct {
		Name string `json:"name"`
	}
	if err := c.call(ctx, "predictLongRunning", http.MethodPost, c.modelURL(req.Model, "predictLongRunning"), body, &out); err != nil {
		return "", err
	}
	if out.Name == "" {
		return "", fmt.Errorf("op=gemini.StartVideo model=%s: %w: missing operation name", req.Model, domain.ErrUpstream)
	}
	return out.Name, nil
}

// PollVideo fetches the state of a long-running video operation.
func (c *Client) PollVideo(ctx domain.Context, operation string) (domain.VideoOperation, error) {
	var out struct {
		Name     string    `json:"name"`
		Done     bool      `json:"done"`
		Error    *apiError `json:"error"`
		Response *struct {
			GenerateVideoResponse struct {
				GeneratedSamples []struct {
					Video struct {
						URI string `json:"uri"`
					} `json:"video"`
				} `json:"generatedSamples"`
			} `json:"generateVideoResponse"`
		} `json:"response"`
	}
	if err := c.call(ctx, "getOperation", http.MethodGet, c.baseURL+"/"+strings.TrimLeft(operation, "/"), nil, &out); err != nil {
		return domain.VideoOperation{}, err
	}
	op := domain.VideoOperation{Name: out.Name, Done: out.Done}
	if op.Name == "" {
		op.Name = operation
	}
	if !out.Done {
		return op, nil
	}
	if out.Error != nil {
		return op, &domain.UpstreamError{Operation: "predictLongRunning", StatusCode: httpStatusForRPC(out.Error.Code), Status: out.Error.Status, Message: out.Error.Message}
	}
	if out.Response != nil {
		for _, s := range out.Response.GenerateVideoResponse.GeneratedSamples {
			if s.Video.URI != "" {
				op.URI = s.Video.URI
				break
			}
		}
	}
	if op.URI == "" {
		return op, fmt.Errorf("op=gemini.PollVideo name=%s: %w: finished without a video", operation, domain.ErrUpstream)
	}
	return op, nil
}

// Download fetches a generated file. The API key travels in a header so
// that it never appears in URLs or access logs.
func (c *Client) Download(ctx domain.Context, uri string) ([]byte, error) {
	start := time.Now()
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("op=gemini.Download: %w: %v", domain.ErrInvalidArgument, err)
	}
	r.Header.Set(apiKeyHeader, c.apiKey)
	resp, err := c.hc.Do(r)
	if err != nil {
		observability.ObserveAIRequest(provider, "download", 0, time.Since(start))
		return nil, transportError("download", err)
	}
	defer func() { _ = resp.Body.Close() }()
	observability.ObserveAIRequest(provider, "download", resp.StatusCode, time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError("download", resp)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDownload+1))
	if err != nil {
		return nil, fmt.Errorf("op=gemini.Download: %w: %v", domain.ErrUpstream, err)
	}
	if int64(len(data)) > c.maxDownload {
		return nil, fmt.Errorf("op=gemini.Download: %w: file exceeds %d bytes", domain.ErrUpstream, c.maxDownload)
	}
	return data, nil
}

func (c *Client) modelURL(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", c.baseURL, strings.TrimPrefix(model, "models/"), method)
}

// call performs one JSON round trip and records metrics for it.
func (c *Client) call(ctx domain.Context, operation, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("op=gemini.%s: %w: %v", operation, domain.ErrInternal, err)
		}
		body = bytes.NewReader(b)
	}
	r, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("op=gemini.%s: %w: %v", operation, domain.ErrInternal, err)
	}
	r.Header.Set(apiKeyHeader, c.apiKey)
	if in != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(r)
	if err != nil {
		observability.ObserveAIRequest(provider, operation, 0, time.Since(start))
		return transportError(operation, err)
	}
	defer func() { _ = resp.Body.Close() }()
	observability.ObserveAIRequest(provider, operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		uerr := decodeError(operation, resp)
		lvl := slog.LevelError
		if uerr.IsQuota() {
			lvl = slog.LevelWarn
		}
		obsctx.LoggerFromContext(ctx).Log(ctx, lvl, "gemini non-2xx",
			slog.String("provider", provider),
			slog.String("op", operation),
			slog.Int("status", resp.StatusCode),
			slog.String("upstream_status", uerr.Status))
		return uerr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("op=gemini.%s: %w: decode response: %v", operation, domain.ErrUpstream, err)
	}
	return nil
}

// decodeError maps a non-2xx response onto an UpstreamError using the
// Google error envelope when present.
func decodeError(operation string, resp *http.Response) *domain.UpstreamError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	uerr := &domain.UpstreamError{Operation: operation, StatusCode: resp.StatusCode}
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && (env.Error.Message != "" || env.Error.Status != "") {
		uerr.Status = env.Error.Status
		uerr.Message = env.Error.Message
		return uerr
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	uerr.Message = msg
	return uerr
}

func transportError(operation string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("op=gemini.%s: %w", operation, err)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("op=gemini.%s: %w: %v", operation, domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("op=gemini.%s: %w: %v", operation, domain.ErrUpstream, err)
}

// httpStatusForRPC converts the gRPC code carried by failed operations.
func httpStatusForRPC(code int) int {
	switch code {
	case 3:
		return http.StatusBadRequest
	case 4:
		return http.StatusGatewayTimeout
	case 7:
		return http.StatusForbidden
	case 8:
		return http.StatusTooManyRequests
	case 14:
		return http.StatusServiceUnavailable
	}
	if code >= 400 && code < 600 {
		return code
	}
	return http.StatusInternalServerError
}

// operationFromPath turns ".../models/x:generateContent" into "generateContent".
func operationFromPath(p string) string {
	if i := strings.LastIndexByte(p, ':'); i >= 0 {
		return p[i+1:]
	}
	if strings.Contains(p, "/operations/") {
		return "getOperation"
	}
	return "download"
}
