package cli

import (
	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/app"
	"github.com/doeshing/skip-go/internal/infrastructure/cli/commands"
	"github.com/doeshing/skip-go/internal/infrastructure/config"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command. The container is filled in once
// flags are parsed; config-only commands get just the loader so they work
// against a broken configuration.
func NewRootCmd(opts Options) *cobra.Command {
	container := &app.Container{}
	appOpts := app.Options{Verbose: opts.Verbose, Context: app.DefaultContext}

	root := &cobra.Command{
		Use:   "skip",
		Short: "skip - incremental Kaldi recipe builder",
		Long: `skip builds Kaldi decoding graphs, features, decodes and alignments,
caching every artifact by a fingerprint of its inputs so unchanged stages
are never rebuilt.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configOnly(cmd) {
				loader := config.NewFileLoader(appOpts.ConfigPath)
				*container = app.Container{
					Options:        appOpts,
					ConfigLoader:   loader,
					ConfigProvider: loader,
				}
				return nil
			}
			built, err := app.BuildContainer(cmd.Context(), appOpts)
			if err != nil {
				return err
			}
			*container = *built
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&appOpts.ConfigPath, "config", "", "Config file (default ~/.skip/config.yaml, or $"+config.EnvConfigPath+")")
	flags.BoolVarP(&appOpts.Verbose, "verbose", "v", opts.Verbose, "Log every tool invocation")
	flags.StringVar(&appOpts.Context, "context", app.DefaultContext, "Context the artifacts are cached in")

	root.AddCommand(
		commands.NewLexiconCommand(container),
		commands.NewGrammarCommand(container),
		commands.NewGraphCommand(container),
		commands.NewFeaturesCommand(container),
		commands.NewDecodeCommand(container),
		commands.NewAlignCommand(container),
		commands.NewSymtablesCommand(),
		commands.NewCacheCommand(container),
		commands.NewContextCommand(container),
		commands.NewHistoryCommand(container),
		commands.NewConfigCommand(container),
		commands.NewDoctorCommand(container),
		commands.NewVersionCommand(),
	)
	return root
}

// configOnly reports whether cmd, or a command above it, only needs the
// config loader. Cobra's help and completion commands never touch a context.
func configOnly(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[commands.AnnotationConfigOnly] != "" {
			return true
		}
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}
