// Package mocks provides testify mocks for the domain ports.
package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

// MockGenAIClient mocks domain.GenAIClient.
type MockGenAIClient struct {
	mock.Mock
}

func (m *MockGenAIClient) GenerateText(ctx domain.Context, req domain.TextRequest) (domain.TextResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.TextResponse), args.Error(1)
}

func (m *MockGenAIClient) GenerateImage(ctx domain.Context, req domain.ImageRequest) (domain.GeneratedImage, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.GeneratedImage), args.Error(1)
}

func (m *MockGenAIClient) StartVideo(ctx domain.Context, req domain.VideoRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGenAIClient) PollVideo(ctx domain.Context, operation string) (domain.VideoOperation, error) {
	args := m.Called(ctx, operation)
	return args.Get(0).(domain.VideoOperation), args.Error(1)
}

func (m *MockGenAIClient) Download(ctx domain.Context, uri string) ([]byte, error) {
	args := m.Called(ctx, uri)
	var b []byte
	if v := args.Get(0); v != nil {
		b = v.([]byte)
	}
	return b, args.Error(1)
}

// MockTrendArchive mocks domain.TrendArchive.
type MockTrendArchive struct {
	mock.Mock
}

func (m *MockTrendArchive) SaveBatch(ctx domain.Context, trends []domain.ArchivedTrend) error {
	return m.Called(ctx, trends).Error(0)
}

func (m *MockTrendArchive) Latest(ctx domain.Context, category string, limit int) ([]domain.ArchivedTrend, error) {
	args := m.Called(ctx, category, limit)
	var out []domain.ArchivedTrend
	if v := args.Get(0); v != nil {
		out = v.([]domain.ArchivedTrend)
	}
	return out, args.Error(1)
}

// MockScanPublisher mocks domain.ScanPublisher.
type MockScanPublisher struct {
	mock.Mock
}

func (m *MockScanPublisher) PublishScan(ctx domain.Context, ev domain.ScanEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// MockCache mocks domain.Cache.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx domain.Context, key string, dst any) (bool, error) {
	args := m.Called(ctx, key, dst)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(ctx domain.Context, key string, v any, ttl time.Duration) error {
	return m.Called(ctx, key, v, ttl).Error(0)
}
