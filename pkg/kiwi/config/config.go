// Package config holds the analyzer settings record and its YAML loader.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/analysis"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/charfilter"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/engine"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/internalerr"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/stoptags"
	"github.com/cognicore/kiwi-analysis/pkg/kiwi/tag"
)

// Tag filter modes.
const (
	ModeStop    = "stop"
	ModeContent = "content"
)

// DefaultModelPath is the model directory used when none is configured.
const DefaultModelPath = "kiwi"

// Settings configures one analyzer.
//
// Example:
//
//	model_path: /opt/kiwi/models/base
//	user_dictionary: /etc/search/user.dict
//	discard_punctuation: true
//	pos_tags_to_include: [NNG, NNP]
//	stop_tags: [JKS, JKO, EF]
//	char_filters: [html_strip, nfc]
type Settings struct {
	ModelPath          string   `yaml:"model_path"`
	NumThreads         int      `yaml:"num_threads"`
	DiscardPunctuation bool     `yaml:"discard_punctuation"`
	UserDictionary     string   `yaml:"user_dictionary"`
	PosTagsToInclude   []string `yaml:"pos_tags_to_include"`
	TagFilter          bool     `yaml:"tag_filter"`
	TagFilterMode      string   `yaml:"tag_filter_mode"`
	// StopTags replaces the default stop set. Nil keeps the default; an
	// explicit empty list disables the stage.
	StopTags    []string `yaml:"stop_tags"`
	LowerCase   bool     `yaml:"lowercase"`
	StemForeign bool     `yaml:"stem_foreign"`
	CharFilters []string `yaml:"char_filters"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		ModelPath:          DefaultModelPath,
		DiscardPunctuation: true,
		TagFilter:          true,
		TagFilterMode:      ModeStop,
		LowerCase:          true,
	}
}

// Load reads settings from a YAML file. Keys missing from the file keep
// their defaults. The result is validated.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML settings over the defaults and validates them.
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: parse settings: %w", internalerr.ErrInvalidConfig, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks every field and reports all problems at once.
func (s Settings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.ModelPath) == "" {
		errs = append(errs, errors.New("model_path is empty"))
	}
	if s.NumThreads < 0 {
		errs = append(errs, fmt.Errorf("num_threads %d is negative", s.NumThreads))
	}
	if _, err := tag.ParseAll(s.PosTagsToInclude); err != nil {
		errs = append(errs, fmt.Errorf("pos_tags_to_include: %w", err))
	}
	if _, err := stoptags.Parse(s.StopTags); err != nil {
		errs = append(errs, fmt.Errorf("stop_tags: %w", err))
	}
	switch s.mode() {
	case ModeStop, ModeContent:
	default:
		errs = append(errs, fmt.Errorf("tag_filter_mode %q is not %q or %q", s.TagFilterMode, ModeStop, ModeContent))
	}
	for _, name := range s.CharFilters {
		if _, err := charfilter.New(name); err != nil {
			errs = append(errs, fmt.Errorf("char_filters: %w", err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, errors.Join(errs...))
}

func (s Settings) mode() string {
	if s.TagFilterMode == "" {
		return ModeStop
	}
	return strings.ToLower(strings.TrimSpace(s.TagFilterMode))
}

// EngineConfig returns the cache key tuple.
func (s Settings) EngineConfig() engine.Config {
	return engine.Config{
		ModelPath:      s.ModelPath,
		NumThreads:     s.NumThreads,
		UserDictionary: s.UserDictionary,
	}
}

// IncludeTags returns the tokenizer whitelist, or nil for no restriction.
func (s Settings) IncludeTags() (map[tag.Tag]struct{}, error) {
	if len(s.PosTagsToInclude) == 0 {
		return nil, nil
	}
	tags, err := tag.ParseAll(s.PosTagsToInclude)
	if err != nil {
		return nil, fmt.Errorf("%w: pos_tags_to_include: %w", internalerr.ErrInvalidConfig, err)
	}
	out := make(map[tag.Tag]struct{}, len(tags))
	for _, t := range tags {
		out[t] = struct{}{}
	}
	return out, nil
}

// StopSet returns the configured stop set, or the default one when
// stop_tags is absent.
func (s Settings) StopSet() (stoptags.Set, error) {
	if s.StopTags == nil {
		return stoptags.Default(), nil
	}
	set, err := stoptags.Parse(s.StopTags)
	if err != nil {
		return nil, fmt.Errorf("%w: stop_tags: %w", internalerr.ErrInvalidConfig, err)
	}
	return set, nil
}

// Predicate returns the tag filter stage predicate. It is nil when the stage
// is disabled or the stop set is empty.
func (s Settings) Predicate() (stoptags.Predicate, error) {
	if !s.TagFilter {
		return nil, nil
	}
	if s.mode() == ModeContent {
		return stoptags.ContentPredicate{}, nil
	}
	set, err := s.StopSet()
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return nil, nil
	}
	return stoptags.StopPredicate{Stops: set}, nil
}

// Filters returns the configured char filters in order.
func (s Settings) Filters() ([]charfilter.CharFilter, error) {
	out := make([]charfilter.CharFilter, 0, len(s.CharFilters))
	for _, name := range s.CharFilters {
		f, err := charfilter.New(name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// TokenizerOptions returns the tokenizer half of the pipeline settings.
func (s Settings) TokenizerOptions() (analysis.TokenizerOptions, error) {
	include, err := s.IncludeTags()
	if err != nil {
		return analysis.TokenizerOptions{}, err
	}
	filters, err := s.Filters()
	if err != nil {
		return analysis.TokenizerOptions{}, err
	}
	return analysis.TokenizerOptions{
		DiscardPunctuation: s.DiscardPunctuation,
		IncludeTags:        include,
		CharFilters:        filters,
	}, nil
}

// AnalyzerOptions returns the full pipeline settings.
func (s Settings) AnalyzerOptions() (analysis.AnalyzerOptions, error) {
	tok, err := s.TokenizerOptions()
	if err != nil {
		return analysis.AnalyzerOptions{}, err
	}
	pred, err := s.Predicate()
	if err != nil {
		return analysis.AnalyzerOptions{}, err
	}
	return analysis.AnalyzerOptions{
		Tokenizer:   tok,
		TagFilter:   pred,
		LowerCase:   s.LowerCase,
		StemForeign: s.StemForeign,
	}, nil
}
