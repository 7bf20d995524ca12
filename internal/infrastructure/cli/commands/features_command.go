package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/app"
	"github.com/doeshing/skip-go/internal/application/features"
	"github.com/doeshing/skip-go/internal/application/recipe"
	"github.com/doeshing/skip-go/internal/domain"
)

// NewFeaturesCommand creates the features command
func NewFeaturesCommand(container *app.Container) *cobra.Command {
	var src features.Sources
	params := domain.DefaultFeatureParams()

	cmd := &cobra.Command{
		Use:   "features",
		Short: "Extract MFCC features from a wav.scp",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContext(container)
			if err != nil {
				return err
			}
			feats, outcome, err := runBuild(cmd, "extracting features", func() (domain.Features, recipe.Outcome, error) {
				return c.MakeFeatures(cmd.Context(), src, params)
			})
			if err != nil {
				return fmt.Errorf("failed to extract features: %w", err)
			}
			displayBuild(cmd.OutOrStdout(), domain.StageFeatures, outcome,
				field{"features", feats.Filename},
				field{"wav.scp", feats.WavScp},
				field{"utt2spk", feats.Utt2Spk},
				field{"spk2utt", feats.Spk2Utt},
				field{"log", outcome.LogPath})
			return nil
		},
	}

	cmd.Flags().StringVar(&src.WavScp, "wav-scp", "", "Utterance to audio mapping")
	cmd.Flags().StringVar(&src.Utt2Spk, "utt2spk", "", "Utterance to speaker map (enables per-speaker CMVN)")
	cmd.Flags().StringVar(&src.Spk2Utt, "spk2utt", "", "Speaker to utterances map")
	cmd.Flags().StringVar(&params.Type, "type", params.Type, "Feature type")
	cmd.Flags().IntVar(&params.SampleFreq, "sample-freq", params.SampleFreq, "Audio sample frequency in Hz")
	cmd.Flags().BoolVar(&params.UseEnergy, "use-energy", params.UseEnergy, "Use energy instead of C0")
	cmd.Flags().BoolVar(&params.ApplyCMVN, "cmvn", params.ApplyCMVN, "Apply cepstral mean normalisation")
	cmd.Flags().BoolVar(&params.NormVars, "norm-vars", params.NormVars, "Also normalise variances")
	cmd.Flags().IntVar(&params.DeltaOrder, "delta-order", params.DeltaOrder, "Order of delta features (0 disables)")
	_ = cmd.MarkFlagRequired("wav-scp")
	return cmd
}
