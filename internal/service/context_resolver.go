package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/liliang-cn/gmassist/internal/config"
	"github.com/liliang-cn/gmassist/internal/domain"
)

const defaultSceneSummary = "A descriptive scene"

var nonWordRE = regexp.MustCompile(`[^\w\s]`)

// ScriptSearcher is the part of the script store the resolver needs
type ScriptSearcher interface {
	SearchScripts(ctx context.Context, keywords []string, limit int) ([]*domain.Script, error)
}

// ContextResolver decides whether a user message warrants a script lookup
// and turns the matches into a prompt block and a scene banner.
//
// The trigger is a plain substring test on the configured terms. Paraphrased
// requests that avoid those words get no lookup.
type ContextResolver struct {
	store        ScriptSearcher
	cache        *cache.Cache
	logger       *zap.Logger
	triggers     []string
	maxRecords   int
	excerptChars int
}

// NewContextResolver creates a resolver. A zero cfg.CacheTTL disables caching.
func NewContextResolver(store ScriptSearcher, cfg config.ContextConfig, logger *zap.Logger) *ContextResolver {
	r := &ContextResolver{
		store:        store,
		logger:       logger,
		maxRecords:   cfg.MaxRecords,
		excerptChars: cfg.ExcerptChars,
	}
	for _, t := range cfg.TriggerTerms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			r.triggers = append(r.triggers, t)
		}
	}
	if cfg.CacheTTL > 0 {
		r.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return r
}

// Resolve returns the context block and detected scene for a message. Lookup
// failures are logged and yield ("", nil); they never fail the turn.
func (r *ContextResolver) Resolve(ctx context.Context, message string) (string, *domain.Scene) {
	query := strings.ToLower(message)
	if !r.triggered(query) {
		return "", nil
	}

	keywords := ExtractKeywords(query)
	if len(keywords) == 0 {
		return "", nil
	}

	scripts, err := r.search(ctx, keywords)
	if err != nil {
		r.logger.Warn("script lookup failed, continuing without context",
			zap.Strings("keywords", keywords),
			zap.Error(err),
		)
		return "", nil
	}
	if len(scripts) == 0 {
		return "", nil
	}
	if len(scripts) > r.maxRecords {
		scripts = scripts[:r.maxRecords]
	}

	first := scripts[0]
	scene := &domain.Scene{Name: first.Title, Summary: first.Description}
	if scene.Summary == "" {
		scene.Summary = defaultSceneSummary
	}

	return r.buildContextBlock(scripts), scene
}

// Invalidate drops cached lookups, e.g. after scripts change
func (r *ContextResolver) Invalidate() {
	if r.cache != nil {
		r.cache.Flush()
	}
}

func (r *ContextResolver) triggered(query string) bool {
	for _, t := range r.triggers {
		if strings.Contains(query, t) {
			return true
		}
	}
	return false
}

func (r *ContextResolver) search(ctx context.Context, keywords []string) ([]*domain.Script, error) {
	key := strings.Join(keywords, " ")
	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			return v.([]*domain.Script), nil
		}
	}

	start := time.Now()
	scripts, err := r.store.SearchScripts(ctx, keywords, r.maxRecords)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("script lookup",
		zap.Strings("keywords", keywords),
		zap.Int("matches", len(scripts)),
		zap.Duration("took", time.Since(start)),
	)

	if r.cache != nil {
		r.cache.SetDefault(key, scripts)
	}
	return scripts, nil
}

func (r *ContextResolver) buildContextBlock(scripts []*domain.Script) string {
	var b strings.Builder
	b.WriteString("Relevant script information:\n")
	for _, s := range scripts {
		description := s.Description
		if description == "" {
			description = "N/A"
		}
		fmt.Fprintf(&b, "Title: %s\n", s.Title)
		fmt.Fprintf(&b, "Description: %s\n", description)
		fmt.Fprintf(&b, "Content: %s...\n\n", truncateRunes(s.Content, r.excerptChars))
	}
	return b.String()
}

// ExtractKeywords strips punctuation from a lower-cased query and keeps the
// distinct words longer than three characters, in order of appearance.
func ExtractKeywords(query string) []string {
	var keywords []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(nonWordRE.ReplaceAllString(query, "")) {
		if utf8.RuneCountInString(word) <= 3 || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
	}
	return keywords
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
