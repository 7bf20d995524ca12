package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/doeshing/skip-go/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if cfg.ContextsDir == "" {
		return fmt.Errorf("contexts_dir must be set")
	}
	if err := validateDirs(cfg); err != nil {
		return err
	}
	if err := validateTools(cfg.Tools); err != nil {
		return err
	}
	if err := validateSymbols(cfg.Symbols.WithSymbolDefaults()); err != nil {
		return err
	}
	if err := validateHistory(cfg.History); err != nil {
		return err
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug|info|warn|error, got %s", cfg.LogLevel)
	}
	return nil
}

func validateDirs(cfg domain.Config) error {
	for key, dir := range map[string]string{"kaldi_dir": cfg.KaldiDir, "srilm_dir": cfg.SRILMDir} {
		if dir == "" {
			continue
		}
		if err := mustBeDir(dir); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	for i, dir := range cfg.ToolDirs {
		if dir == "" {
			return fmt.Errorf("tool_dirs[%d] is empty", i)
		}
	}
	return nil
}

func validateTools(tools map[string]string) error {
	for name, path := range tools {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("tools: empty tool name")
		}
		if path != "" && !filepath.IsAbs(path) {
			return fmt.Errorf("tools.%s must be an absolute path, got %s", name, path)
		}
	}
	return nil
}

func validateSymbols(sym domain.SymbolSettings) error {
	seen := map[string]string{}
	for key, value := range map[string]string{
		"epsilon":          sym.Epsilon,
		"grammar_disambig": sym.GrammarDisambig,
		"silence_phone":    sym.SilencePhone,
		"sentence_start":   sym.SentenceStart,
		"sentence_end":     sym.SentenceEnd,
		"word_bound_left":  sym.WordBoundLeft,
		"word_bound_right": sym.WordBoundRight,
	} {
		if strings.ContainsAny(value, " \t\n") {
			return fmt.Errorf("symbols.%s must not contain whitespace", key)
		}
		if other, ok := seen[value]; ok {
			return fmt.Errorf("symbols.%s and symbols.%s are both %q", key, other, value)
		}
		seen[value] = key
	}
	for key, value := range map[string]string{
		"unknown_word":     sym.UnknownWord,
		"decode_oov_word":  sym.DecodeOOVWord,
		"decode_oov_phone": sym.DecodeOOVPhone,
	} {
		if strings.ContainsAny(value, " \t\n") {
			return fmt.Errorf("symbols.%s must not contain whitespace", key)
		}
	}
	return nil
}

func validateHistory(history domain.HistorySettings) error {
	if history.Enabled && history.Path == "" {
		return fmt.Errorf("history.path must be set when history is enabled")
	}
	return nil
}

func mustBeDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
