// Package features extracts acoustic feature archives from audio lists.
package features

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/infrastructure/pipeline"
	"github.com/doeshing/skip-go/internal/pkg/canonical"
)

// Sources are the user files features are computed from. Utt2Spk and
// Spk2Utt enable per-speaker normalisation and must be given together.
type Sources struct {
	WavScp  string
	Utt2Spk string
	Spk2Utt string
}

func (s Sources) perSpeaker() bool {
	return s.Utt2Spk != "" && s.Spk2Utt != ""
}

// Service computes features inside a context directory.
type Service struct {
	engine *recipe.Engine
}

// NewService returns a feature Service.
func NewService(engine *recipe.Engine) *Service {
	return &Service{engine: engine}
}

// MakeFeatures computes (or returns the cached) MFCC archive.
func (s *Service) MakeFeatures(ctx context.Context, contextDir string, src Sources, p domain.FeatureParams) (domain.Features, recipe.Outcome, error) {
	if err := p.Validate(); err != nil {
		return domain.Features{}, recipe.Outcome{}, err
	}
	if (src.Utt2Spk == "") != (src.Spk2Utt == "") {
		return domain.Features{}, recipe.Outcome{}, &domain.UnsupportedParameterError{
			Name:   "utt2spk/spk2utt",
			Value:  src.Utt2Spk + src.Spk2Utt,
			Reason: "both speaker maps must be given together",
		}
	}
	dir := recipe.StageDir(contextDir, domain.StageFeatures)
	params := canonical.New("Feats").
		Str("type", p.Type).
		Path("wavscp", src.WavScp).
		Path("utt2spk", src.Utt2Spk).
		Path("spk2utt", src.Spk2Utt).
		Int("samplefreq", p.SampleFreq).
		Bool("useenergy", p.UseEnergy).
		Bool("applycmvn", p.ApplyCMVN).
		Bool("normvars", p.NormVars).
		Int("deltaorder", p.DeltaOrder)

	attrs, outcome, err := s.engine.Ensure(ctx, recipe.Request{
		Dir:    dir,
		Params: params,
		Dependencies: func(prev domain.Attributes) []domain.DependencyPair {
			old := domain.FeaturesFrom(prev)
			pairs := []domain.DependencyPair{domain.PathPair(src.WavScp, old.WavScp)}
			if src.perSpeaker() {
				pairs = append(pairs,
					domain.PathPair(src.Utt2Spk, old.Utt2Spk),
					domain.PathPair(src.Spk2Utt, old.Spk2Utt))
			}
			return pairs
		},
		Build: func(ctx context.Context, b *recipe.Build) (domain.Artifact, error) {
			return build(ctx, b, src, p)
		},
	})
	if err != nil {
		return domain.Features{}, outcome, err
	}
	return domain.FeaturesFrom(attrs), outcome, nil
}

func build(ctx context.Context, b *recipe.Build, src Sources, p domain.FeatureParams) (domain.Artifact, error) {
	var (
		feats domain.Features
		err   error
	)
	if feats.WavScp, err = b.CopySource(src.WavScp, "wav-", ".scp"); err != nil {
		return nil, err
	}
	if src.perSpeaker() {
		if feats.Utt2Spk, err = b.CopySource(src.Utt2Spk, "utt2spk-", ".ark"); err != nil {
			return nil, err
		}
		if feats.Spk2Utt, err = b.CopySource(src.Spk2Utt, "spk2utt-", ".ark"); err != nil {
			return nil, err
		}
	}
	feats.Filename = b.NewFile("feats-", ".ark")

	err = pipeline.WithScratch("", func(scratch string) error {
		raw := filepath.Join(scratch, "raw.ark")
		return b.Run(ctx, b.Invocation("features", Stages(feats, raw, p)...))
	})
	if err != nil {
		return nil, err
	}
	return feats, nil
}

// Stages lays out the extraction chains: raw MFCCs, then optional mean and
// variance normalisation, then optional deltas, ending in feats.Filename.
func Stages(feats domain.Features, raw string, p domain.FeatureParams) []domain.Stage {
	mfcc := domain.Cmd("compute-mfcc-feats",
		"--sample-frequency="+strconv.Itoa(p.SampleFreq),
		"--use-energy="+strconv.FormatBool(p.UseEnergy),
		"scp:"+feats.WavScp)
	deltas := func(out string) domain.Process {
		return domain.Cmd("add-deltas", "--delta-order="+strconv.Itoa(p.DeltaOrder), "ark:-", out)
	}

	if !p.ApplyCMVN {
		chain := []domain.Process{mfcc}
		if p.DeltaOrder > 0 {
			mfcc.Args = append(mfcc.Args, "ark:-")
			chain = []domain.Process{mfcc, deltas("ark:" + feats.Filename)}
		} else {
			chain[0].Args = append(chain[0].Args, "ark:"+feats.Filename)
		}
		return []domain.Stage{{Name: "compute-mfcc", Chain: chain, Produces: []string{feats.Filename}}}
	}

	mfcc.Args = append(mfcc.Args, "ark:"+raw)
	statsArgs := []string{}
	applyArgs := []string{"--norm-vars=" + strconv.FormatBool(p.NormVars)}
	if feats.Utt2Spk != "" && feats.Spk2Utt != "" {
		statsArgs = append(statsArgs, "--spk2utt=ark:"+feats.Spk2Utt)
		applyArgs = append(applyArgs, "--utt2spk=ark:"+feats.Utt2Spk)
	}
	statsArgs = append(statsArgs, "ark:"+raw, "ark:-")
	applyArgs = append(applyArgs, "ark:-", "ark:"+raw)

	cmvn := []domain.Process{domain.Cmd("compute-cmvn-stats", statsArgs...)}
	if p.DeltaOrder > 0 {
		cmvn = append(cmvn,
			domain.Cmd("apply-cmvn", append(applyArgs, "ark:-")...),
			deltas("ark:"+feats.Filename))
	} else {
		cmvn = append(cmvn, domain.Cmd("apply-cmvn", append(applyArgs, "ark:"+feats.Filename)...))
	}
	return []domain.Stage{
		{Name: "compute-mfcc", Chain: []domain.Process{mfcc}, Produces: []string{raw}},
		{Name: "apply-cmvn", Chain: cmvn, Produces: []string{feats.Filename}},
	}
}
