package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/skip-go/internal/app"
	configapp "github.com/doeshing/skip-go/internal/application/config"
	"github.com/doeshing/skip-go/internal/infrastructure/cli/helpers"
	configinfra "github.com/doeshing/skip-go/internal/infrastructure/config"
	"github.com/doeshing/skip-go/internal/pkg/filesystem"
)

const envKeyEditor = "EDITOR"

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(container *app.Container) *cobra.Command {
	configCmd := &cobra.Command{
		Use:         "config",
		Short:       "Inspect skip configuration",
		Annotations: configOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}

	configCmd.AddCommand(
		newConfigShowCommand(container),
		newConfigPathCommand(container),
		newConfigInitCommand(container),
		newConfigValidateCommand(container),
		newConfigGetCommand(container),
		newConfigSetCommand(container),
		newConfigEditCommand(container),
		newConfigDiffCommand(container),
	)
	for _, sub := range configCmd.Commands() {
		sub.Annotations = configOnly()
	}

	return configCmd
}

// newConfigShowCommand creates the 'config show' subcommand
func newConfigShowCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show full configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newConfigPathCommand creates the 'config path' subcommand
func newConfigPathCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := helpers.GetConfigLoader(container)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), loader.Path())
			return nil
		},
	}
}

// newConfigInitCommand creates the 'config init' subcommand
func newConfigInitCommand(container *app.Container) *cobra.Command {
	var force bool
	var kaldiDir, srilmDir, contextsDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write the default configuration to the config path.

Point kaldi_dir at a Kaldi checkout (and srilm_dir at SRILM to estimate
grammars), then run 'skip doctor' to check that every tool resolves.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfiguration(cmd, container, force, initOverrides{
				kaldiDir:    kaldiDir,
				srilmDir:    srilmDir,
				contextsDir: contextsDir,
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config without prompting")
	cmd.Flags().StringVar(&kaldiDir, "kaldi-dir", "", "Root of the Kaldi checkout")
	cmd.Flags().StringVar(&srilmDir, "srilm-dir", "", "Root of the SRILM installation")
	cmd.Flags().StringVar(&contextsDir, "contexts-dir", "", "Directory holding the contexts")
	return cmd
}

// newConfigValidateCommand creates the 'config validate' subcommand
func newConfigValidateCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := container.ConfigProvider.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			if err := configapp.Validate(cfg); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgConfigurationValid)
			return nil
		},
	}
}

// newConfigGetCommand creates the 'config get' subcommand
func newConfigGetCommand(container *app.Container) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a specific configuration value",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				return errors.New(ErrKeyRequired)
			}
			return getConfigurationValue(cmd.Context(), cmd.OutOrStdout(), container, key)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Key path (e.g., symbols.silence_phone)")
	return cmd
}

// newConfigSetCommand creates the 'config set' subcommand
func newConfigSetCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value (value accepts YAML syntax)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := strings.Join(args[1:], " ")
			return setConfigurationValue(cmd.Context(), container, key, value)
		},
	}
}

// newConfigEditCommand creates the 'config edit' subcommand
func newConfigEditCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit configuration in $EDITOR",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfigurationInEditor(cmd, container)
		},
	}
}

// newConfigDiffCommand creates the 'config diff' subcommand
func newConfigDiffCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show diff versus default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigurationDiff(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// showConfiguration displays the full configuration in YAML format
func showConfiguration(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	fmt.Fprint(out, string(data))
	return nil
}

// initOverrides are the values 'config init' writes over the defaults.
type initOverrides struct {
	kaldiDir    string
	srilmDir    string
	contextsDir string
}

func (o initOverrides) empty() bool {
	return o.kaldiDir == "" && o.srilmDir == "" && o.contextsDir == ""
}

// initConfiguration writes the default configuration, asking before an
// existing file is replaced
func initConfiguration(cmd *cobra.Command, container *app.Container, force bool, overrides initOverrides) error {
	loader, err := helpers.GetConfigLoader(container)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if loader.Exists() && !force {
		reader := bufio.NewReader(cmd.InOrStdin())
		question := fmt.Sprintf("Config already exists at %s. Overwrite?", loader.Path())
		if !helpers.PromptForConfirmation(out, reader, question) {
			fmt.Fprintln(out, MsgInitCancelled)
			return nil
		}
		if _, err := loader.Backup(); err != nil {
			return fmt.Errorf("failed to create configuration backup: %w", err)
		}
	}

	cfg, err := loader.Reset()
	if err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	if !overrides.empty() {
		if overrides.kaldiDir != "" {
			cfg.KaldiDir = filesystem.ExpandHome(overrides.kaldiDir)
		}
		if overrides.srilmDir != "" {
			cfg.SRILMDir = filesystem.ExpandHome(overrides.srilmDir)
		}
		if overrides.contextsDir != "" {
			cfg.ContextsDir = filesystem.ExpandHome(overrides.contextsDir)
		}
		if err := configapp.Validate(cfg); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		if err := loader.Save(cfg); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
	}

	fmt.Fprintf(out, "Configuration written to %s\n", loader.Path())
	return nil
}

// getConfigurationValue prints the YAML value stored under a dotted key
func getConfigurationValue(ctx context.Context, out io.Writer, container *app.Container, key string) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	tree, err := helpers.NewConfigTree(cfg)
	if err != nil {
		return err
	}
	value, err := tree.Get(key)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	fmt.Fprint(out, string(data))
	return nil
}

// setConfigurationValue stores a YAML value under a dotted key and saves the
// result if it still validates
func setConfigurationValue(ctx context.Context, container *app.Container, key string, value string) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	tree, err := helpers.NewConfigTree(cfg)
	if err != nil {
		return err
	}
	if err := tree.Set(key, helpers.ParseYAMLValue(value)); err != nil {
		return err
	}
	updated, err := tree.Config()
	if err != nil {
		return err
	}
	return helpers.SaveConfigWithValidation(container, updated)
}

// editConfigurationInEditor opens the configuration file in $EDITOR and
// validates what was saved
func editConfigurationInEditor(cmd *cobra.Command, container *app.Container) error {
	loader, err := helpers.GetConfigLoader(container)
	if err != nil {
		return err
	}
	if !loader.Exists() {
		if _, err := loader.Reset(); err != nil {
			return fmt.Errorf("failed to write configuration: %w", err)
		}
	}

	editor := exec.CommandContext(cmd.Context(), getEditorCommand(), loader.Path())
	editor.Stdin = os.Stdin
	editor.Stdout = os.Stdout
	editor.Stderr = os.Stderr
	if err := editor.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	cfg, err := loader.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("edited configuration does not parse: %w", err)
	}
	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("edited configuration is invalid: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), MsgConfigurationValid)
	return nil
}

// showConfigurationDiff shows the difference between current and default configuration
func showConfigurationDiff(ctx context.Context, out io.Writer, container *app.Container) error {
	currentConfig, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load current configuration: %w", err)
	}

	diff := cmp.Diff(configinfra.Default(), currentConfig)
	if diff == "" {
		fmt.Fprintln(out, MsgNoDifferencesFromDefault)
		return nil
	}

	fmt.Fprintln(out, diff)
	return nil
}

// getEditorCommand retrieves the editor command from environment or returns default
func getEditorCommand() string {
	if editor := os.Getenv(envKeyEditor); editor != "" {
		return editor
	}
	return DefaultEditorCommand
}
