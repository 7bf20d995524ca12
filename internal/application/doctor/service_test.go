package doctor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/skip-go/internal/domain"
)

type stubConfig struct {
	cfg domain.Config
	err error
}

func (s stubConfig) Load(context.Context) (domain.Config, error) { return s.cfg, s.err }

type stubTools map[string]bool

func (s stubTools) Missing(names []string) []string {
	var out []string
	for _, n := range names {
		if !s[n] {
			out = append(out, n)
		}
	}
	return out
}

type stubHistory struct{ err error }

func (s stubHistory) Save(domain.BuildRecord) error { return nil }
func (s stubHistory) Records(int, string) ([]domain.BuildRecord, error) {
	return nil, s.err
}
func (s stubHistory) Clear() error { return nil }
func (s stubHistory) Path() string { return "/tmp/history.db" }

func checkByName(t *testing.T, report domain.HealthReport, name string) domain.HealthCheck {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no check named %q in %+v", name, report.Checks)
	return domain.HealthCheck{}
}

func baseConfig(t *testing.T) domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		ContextsDir:         filepath.Join(t.TempDir(), "contexts"),
		ToolDirs:            []string{"/opt/bin"},
		Symbols:             domain.DefaultSymbols(),
		History:             domain.HistorySettings{Enabled: true, Path: "/tmp/history.db"},
	}
}

func TestRunAllHealthy(t *testing.T) {
	tools := stubTools{}
	for _, g := range DefaultToolGroups {
		for _, name := range g.Tools {
			tools[name] = true
		}
	}
	s := &Service{ConfigProvider: stubConfig{cfg: baseConfig(t)}, Tools: tools, History: stubHistory{}}

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.Equal(t, domain.HealthOK, checkByName(t, report, "Config file").Status)
	assert.Equal(t, domain.HealthOK, checkByName(t, report, "Contexts dir").Status)
	assert.Equal(t, domain.HealthOK, checkByName(t, report, "Graph tools").Status)
	assert.Equal(t, domain.HealthOK, checkByName(t, report, "History").Status)
}

func TestRunReportsMissingTools(t *testing.T) {
	s := &Service{
		ConfigProvider: stubConfig{cfg: baseConfig(t)},
		Tools:          stubTools{"fstcompile": true},
		History:        stubHistory{err: errors.New("locked")},
	}
	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Failed())

	graph := checkByName(t, report, "Graph tools")
	assert.Equal(t, domain.HealthError, graph.Status)
	assert.NotContains(t, graph.Details, "fstcompile,")
	assert.Contains(t, graph.Details, "fstarcsort")

	estimation := checkByName(t, report, "Grammar estimation")
	assert.Equal(t, domain.HealthWarn, estimation.Status)
	assert.Equal(t, "missing: ngram-count", estimation.Details)

	assert.Equal(t, domain.HealthWarn, checkByName(t, report, "History").Status)
}

func TestRunFlagsInvalidConfig(t *testing.T) {
	cfg := baseConfig(t)
	cfg.LogLevel = "loud"
	s := &Service{ConfigProvider: stubConfig{cfg: cfg}}
	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthError, checkByName(t, report, "Config file").Status)
	assert.Equal(t, domain.HealthWarn, checkByName(t, report, "Tools").Status)
}

func TestRunStopsWhenConfigFailsToLoad(t *testing.T) {
	s := &Service{ConfigProvider: stubConfig{err: errors.New("bad yaml")}}
	report, err := s.Run(context.Background())
	require.Error(t, err)
	require.Len(t, report.Checks, 1)
	assert.Equal(t, domain.HealthError, report.Checks[0].Status)
}
