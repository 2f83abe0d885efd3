package cli

import (
	"context"
	"fmt"

	"atsforge/internal/common"
	"atsforge/internal/engine"
	"atsforge/internal/gate"
	"atsforge/internal/profile"
	"atsforge/internal/types"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch [profile-file] [job-description-file...]",
	Short: "Tailor one profile against many job descriptions",
	Long: `Run the tailoring loop for one candidate profile against multiple job
descriptions on a bounded worker pool. Results keep the input order, and each
target carries its own terminal state: near-identical descriptions are served
from cache, passing drafts are released, and the rest are escalated with
their attempt history.`,
	Args: cobra.MinimumNArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if batchConfig.OutputFormat == "" {
			batchConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(batchConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runBatch,
}

var batchConfig common.CommandConfig

func init() {
	batchCmd.Flags().StringVarP(&batchConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	batchCmd.Flags().StringVar(&batchConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = batchCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

type batchInput struct {
	Profile *types.CandidateProfile
	Targets []string
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	createInput := func(contents []string) (batchInput, error) {
		if len(contents) < 2 {
			return batchInput{}, fmt.Errorf("expected a profile and at least 1 job description, got %d files", len(contents))
		}
		prof, err := profile.Parse([]byte(contents[0]))
		if err != nil {
			return batchInput{}, err
		}
		return batchInput{Profile: prof, Targets: contents[1:]}, nil
	}

	logDetails := func(input batchInput, cfg common.CommandConfig) {
		logger.Info("Starting batch tailoring",
			"candidate", input.Profile.PersonalInfo.Name,
			"targets", len(input.Targets),
			"workers", getConfigFromContext(cmd.Context()).Gate.BatchWorkers,
			"output_format", cfg.OutputFormat)
	}

	batchOperation := func(ctx context.Context, input batchInput) ([]gate.BatchResult, error) {
		return eng.TailorBatch(ctx, input.Profile, input.Targets)
	}

	err = common.RunEngineCommand(
		cmd.Context(),
		logger,
		batchConfig,
		args,
		createInput,
		batchOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to run batch tailoring: %w", err)
	}
	logger.Info("Batch tailoring completed successfully")
	return nil
}
