package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	appconfig "github.com/doeshing/skip-go/internal/application/config"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/pkg/filesystem"
	"github.com/doeshing/skip-go/internal/ports"
)

// ToolGroup is a set of tools needed by one family of commands. Optional
// groups only warn when tools are missing.
type ToolGroup struct {
	Name     string
	Tools    []string
	Optional bool
}

// DefaultToolGroups splits the required tools by the commands that use them.
var DefaultToolGroups = []ToolGroup{
	{Name: "Graph tools", Tools: []string{
		"fstcompile", "fstaddselfloops", "fstarcsort", "fstprint", "fstrmepsilon",
		"fsttablecompose", "fstdeterminizestar", "fstminimizeencoded", "fstcomposecontext",
		"fstrmsymbols", "fstrmepslocal", "make-h-transducer", "add-self-loops", "arpa2fst",
	}},
	{Name: "Feature tools", Tools: []string{"compute-mfcc-feats", "compute-cmvn-stats", "apply-cmvn", "add-deltas"}},
	{Name: "Decoder tools", Tools: []string{
		"gmm-decode-faster", "compile-train-graphs", "gmm-align-compiled",
		"ali-to-phones", "phones-to-prons", "prons-to-word-ali",
	}},
	{Name: "Grammar estimation", Tools: []string{"ngram-count"}, Optional: true},
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Tools          ports.ToolInventory
	History        ports.HistoryRepository
	Groups         []ToolGroup
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("format %s", cfg.ConfigFormatVersion)))
	}

	checks = append(checks, contextsCheck(cfg.ContextsDir))

	if cfg.KaldiDir == "" && len(cfg.ToolDirs) == 0 {
		checks = append(checks, warn("Kaldi", "kaldi_dir not set, relying on tool_dirs and PATH"))
	} else if cfg.KaldiDir != "" {
		checks = append(checks, ok("Kaldi", cfg.KaldiDir))
	}

	if s.Tools != nil {
		groups := s.Groups
		if groups == nil {
			groups = DefaultToolGroups
		}
		for _, g := range groups {
			checks = append(checks, toolCheck(g, s.Tools.Missing(g.Tools)))
		}
	} else {
		checks = append(checks, warn("Tools", "tool locator not initialized"))
	}

	if s.History != nil {
		checks = append(checks, historyCheck(cfg.History, s.History))
	}

	return domain.HealthReport{Checks: checks}, nil
}

func contextsCheck(dir string) domain.HealthCheck {
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		return fail("Contexts dir", err.Error())
	}
	probe := filesystem.RandomName(dir, ".doctor-", "")
	if err := os.WriteFile(probe, nil, domain.FilePermissions); err != nil {
		return fail("Contexts dir", fmt.Sprintf("%s is not writable: %v", dir, err))
	}
	filesystem.RemoveQuietly(probe)
	return ok("Contexts dir", dir)
}

func toolCheck(g ToolGroup, missing []string) domain.HealthCheck {
	if len(missing) == 0 {
		return ok(g.Name, fmt.Sprintf("%d found", len(g.Tools)))
	}
	details := "missing: " + strings.Join(missing, ", ")
	if g.Optional {
		return warn(g.Name, details)
	}
	return fail(g.Name, details)
}

func historyCheck(settings domain.HistorySettings, repo ports.HistoryRepository) domain.HealthCheck {
	if !settings.Enabled {
		return warn("History", "disabled")
	}
	if _, err := repo.Records(1, ""); err != nil {
		return warn("History", err.Error())
	}
	return ok("History", filepath.Clean(repo.Path()))
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
