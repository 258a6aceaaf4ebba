package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meetingintel/internal/resilience"
	"github.com/sells-group/meetingintel/pkg/jina"
)

type mockJinaClient struct {
	mock.Mock
}

func (m *mockJinaClient) Read(ctx context.Context, targetURL string, opts ...jina.ReadOption) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.ReadResponse), args.Error(1)
}

func (m *mockJinaClient) Search(ctx context.Context, query string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.SearchResponse), args.Error(1)
}

func goodRead() *jina.ReadResponse {
	return &jina.ReadResponse{Code: 200, Data: jina.ReadData{
		Title:   "About Acme",
		URL:     "https://acme.io/about",
		Content: strings.Repeat("Acme builds warehouse robots. ", 10),
	}}
}

func TestJinaScraper_Success(t *testing.T) {
	client := &mockJinaClient{}
	client.On("Read", mock.Anything, "https://acme.io/about").Return(goodRead(), nil)

	s := NewJinaScraper(client, 10*time.Second)
	res, err := s.Scrape(context.Background(), "https://acme.io/about")
	require.NoError(t, err)
	assert.Equal(t, "jina", res.Source)
	assert.Equal(t, "About Acme", res.Page.Title)
	assert.Equal(t, 200, res.Page.StatusCode)
	assert.Equal(t, "jina", s.Name())
}

func TestJinaScraper_ShortContentNeedsFallback(t *testing.T) {
	client := &mockJinaClient{}
	client.On("Read", mock.Anything, mock.Anything).Return(&jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "tiny"}}, nil)

	_, err := NewJinaScraper(client, 0).Scrape(context.Background(), "https://acme.io")
	assert.ErrorIs(t, err, ErrNeedsFallback)
}

func TestJinaScraper_CircuitOpensAfterThreeFailures(t *testing.T) {
	client := &mockJinaClient{}
	client.On("Read", mock.Anything, mock.Anything).Return(nil, errors.New("upstream 502"))

	s := NewJinaScraper(client, 0)
	for range 3 {
		assert.True(t, s.Supports("https://acme.io"))
		_, err := s.Scrape(context.Background(), "https://acme.io")
		require.Error(t, err)
	}
	assert.False(t, s.Supports("https://acme.io"))

	_, err := s.Scrape(context.Background(), "https://acme.io")
	assert.ErrorIs(t, err, resilience.ErrOpen)
	client.AssertNumberOfCalls(t, "Read", 3)
}

func TestJinaScraper_CancelDoesNotTrip(t *testing.T) {
	client := &mockJinaClient{}
	client.On("Read", mock.Anything, mock.Anything).Return(nil, context.Canceled)

	s := NewJinaScraper(client, 0)
	for range 5 {
		_, _ = s.Scrape(context.Background(), "https://acme.io")
	}
	assert.True(t, s.Supports("https://acme.io"))
}

func TestNeedsFallback(t *testing.T) {
	long := strings.Repeat("x", 200)
	assert.True(t, needsFallback(nil))
	assert.True(t, needsFallback(&jina.ReadResponse{Code: 451, Data: jina.ReadData{Content: long}}))
	assert.True(t, needsFallback(&jina.ReadResponse{Data: jina.ReadData{Content: "  short  "}}))
	assert.True(t, needsFallback(&jina.ReadResponse{Data: jina.ReadData{Content: "Just a moment... " + long}}))
	assert.False(t, needsFallback(&jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: long}}))
	assert.False(t, needsFallback(&jina.ReadResponse{Data: jina.ReadData{Content: "cloudflare customer story " + strings.Repeat("y", 1200)}}))
}
