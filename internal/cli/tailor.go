package cli

import (
	"context"
	"fmt"

	"atsforge/internal/common"
	"atsforge/internal/engine"
	"atsforge/internal/profile"
	"atsforge/internal/types"

	"github.com/spf13/cobra"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor [profile-file] [job-description-file]",
	Short: "Generate tailored resume content for a job description",
	Long: `Generate tailored resume content from a candidate profile for a specific
job description. The command takes two arguments: the path to the candidate
profile (JSON) and the path to the job description file.

Each draft is scored before it is released. Drafts below the relevance
threshold are regenerated with the missing keywords fed back into content
selection; if the retry budget runs out the result is marked ESCALATED and
carries the full attempt history for manual review.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if tailorConfig.OutputFormat == "" {
			tailorConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(tailorConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runTailor,
}

var tailorConfig common.CommandConfig

func init() {
	tailorCmd.Flags().StringVarP(&tailorConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	tailorCmd.Flags().StringVar(&tailorConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = tailorCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

type tailorInput struct {
	Profile     *types.CandidateProfile
	Description string
}

func runTailor(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	createInput := func(contents []string) (tailorInput, error) {
		if len(contents) != 2 {
			return tailorInput{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
		}
		prof, err := profile.Parse([]byte(contents[0]))
		if err != nil {
			return tailorInput{}, err
		}
		return tailorInput{Profile: prof, Description: contents[1]}, nil
	}

	logDetails := func(input tailorInput, cfg common.CommandConfig) {
		logger.Info("Starting resume tailoring",
			"candidate", input.Profile.PersonalInfo.Name,
			"job_chars", len(input.Description),
			"output_format", cfg.OutputFormat)
	}

	tailorOperation := func(ctx context.Context, input tailorInput) (types.GateOutcome, error) {
		return eng.Tailor(ctx, input.Profile, input.Description), nil
	}

	err = common.RunEngineCommand(
		cmd.Context(),
		logger,
		tailorConfig,
		args,
		createInput,
		tailorOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to tailor resume: %w", err)
	}
	logger.Info("Resume tailoring completed successfully")
	return nil
}
