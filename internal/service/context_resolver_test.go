package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liliang-cn/gmassist/internal/config"
	"github.com/liliang-cn/gmassist/internal/domain"
)

type fakeSearcher struct {
	mu       sync.Mutex
	scripts  []*domain.Script
	err      error
	calls    int
	keywords [][]string
	limits   []int
}

func (f *fakeSearcher) SearchScripts(ctx context.Context, keywords []string, limit int) ([]*domain.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.keywords = append(f.keywords, keywords)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.scripts, nil
}

func testContextConfig() config.ContextConfig {
	return config.ContextConfig{
		TriggerTerms: []string{"script", "scene"},
		MaxRecords:   3,
		ExcerptChars: 300,
	}
}

func TestContextResolver_NoTriggerSkipsStore(t *testing.T) {
	store := &fakeSearcher{}
	r := NewContextResolver(store, testContextConfig(), zap.NewNop())

	block, scene := r.Resolve(context.Background(), "Describe the dragon's lair in detail")

	assert.Empty(t, block)
	assert.Nil(t, scene)
	assert.Equal(t, 0, store.calls)
}

func TestContextResolver_TriggerTermCountsAsKeyword(t *testing.T) {
	store := &fakeSearcher{}
	r := NewContextResolver(store, testContextConfig(), zap.NewNop())

	block, scene := r.Resolve(context.Background(), "a scene!")

	require.Equal(t, 1, store.calls)
	assert.Equal(t, []string{"scene"}, store.keywords[0])
	assert.Empty(t, block)
	assert.Nil(t, scene)

	store.calls = 0
	_, _ = r.Resolve(context.Background(), "Scene? Yes.")
	assert.Equal(t, 1, store.calls)
}

func TestContextResolver_BuildsBlockAndScene(t *testing.T) {
	long := strings.Repeat("é", 350)
	store := &fakeSearcher{scripts: []*domain.Script{
		{Title: "Garden Ambush", Description: "A quiet garden turns deadly", Content: long},
		{Title: "Harbor", Content: "Ships creak."},
		{Title: "Crypt", Content: "Bones."},
		{Title: "Extra", Content: "Should be cut."},
	}}
	r := NewContextResolver(store, testContextConfig(), zap.NewNop())

	block, scene := r.Resolve(context.Background(), "Tell me about the garden scene")

	require.Equal(t, 1, store.calls)
	assert.Equal(t, []string{"tell", "about", "garden", "scene"}, store.keywords[0])
	assert.Equal(t, 3, store.limits[0])

	require.NotNil(t, scene)
	assert.Equal(t, "Garden Ambush", scene.Name)
	assert.Equal(t, "A quiet garden turns deadly", scene.Summary)

	assert.True(t, strings.HasPrefix(block, "Relevant script information:\n"))
	assert.Contains(t, block, "Title: Garden Ambush\nDescription: A quiet garden turns deadly\n")
	assert.Contains(t, block, "Content: "+strings.Repeat("é", 300)+"...\n\n")
	assert.NotContains(t, block, strings.Repeat("é", 301))
	assert.Contains(t, block, "Title: Harbor\nDescription: N/A\nContent: Ships creak....\n\n")
	assert.Equal(t, 3, strings.Count(block, "Title: "))
	assert.NotContains(t, block, "Extra")
}

func TestContextResolver_DefaultSummary(t *testing.T) {
	store := &fakeSearcher{scripts: []*domain.Script{{Title: "Harbor", Content: "Ships."}}}
	r := NewContextResolver(store, testContextConfig(), zap.NewNop())

	_, scene := r.Resolve(context.Background(), "run the harbor script")

	require.NotNil(t, scene)
	assert.Equal(t, defaultSceneSummary, scene.Summary)
}

func TestContextResolver_StoreFailureFailsSoft(t *testing.T) {
	store := &fakeSearcher{err: errors.New("connection refused")}
	r := NewContextResolver(store, testContextConfig(), zap.NewNop())

	block, scene := r.Resolve(context.Background(), "load the tavern script")

	assert.Equal(t, 1, store.calls)
	assert.Empty(t, block)
	assert.Nil(t, scene)
}

func TestContextResolver_CachesLookups(t *testing.T) {
	store := &fakeSearcher{scripts: []*domain.Script{{Title: "Harbor", Content: "Ships."}}}
	cfg := testContextConfig()
	cfg.CacheTTL = time.Minute
	r := NewContextResolver(store, cfg, zap.NewNop())

	first, _ := r.Resolve(context.Background(), "harbor scene please")
	second, _ := r.Resolve(context.Background(), "HARBOR SCENE PLEASE")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls)

	r.Invalidate()
	_, _ = r.Resolve(context.Background(), "harbor scene please")
	assert.Equal(t, 2, store.calls)
}

func TestExtractKeywords(t *testing.T) {
	assert.Equal(t, []string{"what", "happens", "tavern", "scene"},
		ExtractKeywords("what happens in the tavern scene? the tavern!"))
	assert.Equal(t, []string{"dont", "stop"}, ExtractKeywords("don't stop"))
	assert.Empty(t, ExtractKeywords("a b c"))
}
