package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/skip-go/internal/app"
	"github.com/doeshing/skip-go/internal/application/doctor"
	"github.com/doeshing/skip-go/internal/domain"
)

// NewDoctorCommand creates the doctor command
func NewDoctorCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:         "doctor",
		Short:       "Diagnose environment setup",
		Long:        "Check the configuration, the contexts directory, every Kaldi and SRILM tool and the build history.",
		Annotations: configOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctorDiagnostics(cmd, cmd.OutOrStdout(), container)
		},
	}
}

// runDoctorDiagnostics runs environment diagnostics
func runDoctorDiagnostics(cmd *cobra.Command, out io.Writer, container *app.Container) error {
	service, err := doctorService(cmd, container)
	if err != nil {
		return err
	}

	report, err := service.Run(cmd.Context())

	// Display report even if there were errors
	displayDoctorReport(out, report)

	if err != nil {
		return fmt.Errorf("diagnostics completed with errors: %w", err)
	}
	if report.Failed() {
		return errors.New("diagnostics found problems")
	}
	return nil
}

// doctorService builds the service from the raw configuration so an invalid
// file is reported rather than refused.
func doctorService(cmd *cobra.Command, container *app.Container) (*doctor.Service, error) {
	if container.DoctorService != nil {
		return container.DoctorService, nil
	}
	if container.ConfigLoader == nil {
		return nil, errors.New(ErrDoctorServiceUnavailable)
	}
	cfg, err := container.ConfigLoader.Load(cmd.Context())
	if err != nil {
		return &doctor.Service{ConfigProvider: container.ConfigLoader}, nil
	}
	return app.NewContainer(cfg, container.ConfigLoader, container.Options).DoctorService, nil
}

// displayDoctorReport displays the health check report
func displayDoctorReport(out io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		fmt.Fprintf(out, "[%s] %s - %s\n",
			strings.ToUpper(string(check.Status)),
			check.Name,
			check.Details)
	}
}
