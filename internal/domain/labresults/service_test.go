package labresults

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/opencare/opencare/internal/labextract"
)

type mockCache struct {
	entries map[string][]labextract.ExtractedValue
	getErr  error
	setErr  error
	gets    int
	sets    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]labextract.ExtractedValue)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]labextract.ExtractedValue, bool, error) {
	m.gets++
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, values []labextract.ExtractedValue) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = values
	return nil
}

func newTestService() *Service {
	return NewService(labextract.New(), 1024, zerolog.Nop())
}

func TestService_Extract(t *testing.T) {
	svc := newTestService()
	resp, err := svc.Extract(context.Background(), &ExtractRequest{
		Text:   "Résultats: NA 139 K 4.1 GLUCOSE: 5,6",
		Labels: []string{"NA", "K", "GLUCOSE"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 3 {
		t.Fatalf("expected count 3, got %d", resp.Count)
	}
	if resp.ExtractedValues[2].Value != "5.6" {
		t.Errorf("expected GLUCOSE=5.6, got %s", resp.ExtractedValues[2].Value)
	}
}

func TestService_Extract_NoMatchesIsNotAnError(t *testing.T) {
	svc := newTestService()
	resp, err := svc.Extract(context.Background(), &ExtractRequest{
		Text:   "illisible",
		Labels: []string{"Sodium"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 0 || resp.ExtractedValues == nil {
		t.Errorf("expected empty non-nil list, got %+v", resp)
	}
}

func TestService_Extract_TextTooLarge(t *testing.T) {
	svc := NewService(labextract.New(), 8, zerolog.Nop())
	_, err := svc.Extract(context.Background(), &ExtractRequest{
		Text:   "Sodium 142 Potassium 4.1",
		Labels: []string{"Sodium"},
	})
	if !errors.Is(err, ErrTextTooLarge) {
		t.Fatalf("expected ErrTextTooLarge, got %v", err)
	}
}

func TestService_Extract_UsesCache(t *testing.T) {
	svc := newTestService()
	cache := newMockCache()
	svc.SetCache(cache)
	req := &ExtractRequest{Text: "Sodium 142", Labels: []string{"Sodium"}}

	if _, err := svc.Extract(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected result to be cached, sets=%d", cache.sets)
	}

	// Poison the cached entry to prove the second call reads it.
	cache.entries[cacheKey(req)] = []labextract.ExtractedValue{{TestName: "Sodium", Value: "999"}}
	resp, err := svc.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ExtractedValues[0].Value != "999" {
		t.Errorf("expected cached value, got %+v", resp.ExtractedValues)
	}
	if cache.sets != 1 {
		t.Errorf("expected no second write, sets=%d", cache.sets)
	}
}

func TestService_Extract_CacheFailureFallsBack(t *testing.T) {
	svc := newTestService()
	cache := newMockCache()
	cache.getErr = errors.New("connection refused")
	cache.setErr = errors.New("connection refused")
	svc.SetCache(cache)

	resp, err := svc.Extract(context.Background(), &ExtractRequest{Text: "Sodium 142", Labels: []string{"Sodium"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 1 || resp.ExtractedValues[0].Value != "142" {
		t.Errorf("expected Sodium=142, got %+v", resp.ExtractedValues)
	}
}

func TestCacheKey(t *testing.T) {
	a := cacheKey(&ExtractRequest{Text: "ab", Labels: []string{"c"}})
	b := cacheKey(&ExtractRequest{Text: "a", Labels: []string{"bc"}})
	if a == b {
		t.Error("expected different keys when characters move between text and labels")
	}
	c := cacheKey(&ExtractRequest{Text: "Sodium 142", Labels: []string{"Sodium", "K"}})
	d := cacheKey(&ExtractRequest{Text: "Sodium 142", Labels: []string{"K", "Sodium"}})
	if c == d {
		t.Error("expected label order to change the key")
	}
	if a != cacheKey(&ExtractRequest{Text: "ab", Labels: []string{"c"}}) {
		t.Error("expected key to be deterministic")
	}
}
