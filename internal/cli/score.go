package cli

import (
	"context"
	"fmt"

	"atsforge/internal/common"
	"atsforge/internal/engine"
	"atsforge/internal/types"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [document-file] [job-description-file]",
	Short: "Score a resume document against a job description",
	Long: `Score an existing resume document against a job description.
The command takes two arguments: the path to the resume document and the path
to the job description file. Both files should be in plain text format.

The score is a weighted combination of keyword match, section completeness,
keyword density, experience relevance, and formatting, each reported
separately in the breakdown.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if scoreConfig.OutputFormat == "" {
			scoreConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(scoreConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runScore,
}

var scoreConfig common.CommandConfig

func init() {
	scoreCmd.Flags().StringVarP(&scoreConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	scoreCmd.Flags().StringVar(&scoreConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = scoreCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

type scoreInput struct {
	Document    string
	Description string
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	createInput := func(contents []string) (scoreInput, error) {
		if len(contents) != 2 {
			return scoreInput{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
		}
		return scoreInput{Document: contents[0], Description: contents[1]}, nil
	}

	logDetails := func(input scoreInput, cfg common.CommandConfig) {
		logger.Info("Starting document scoring",
			"document_chars", len(input.Document),
			"job_chars", len(input.Description),
			"output_format", cfg.OutputFormat)
	}

	scoreOperation := func(ctx context.Context, input scoreInput) (types.ScoreResult, error) {
		return eng.Score(ctx, input.Document, input.Description), nil
	}

	err = common.RunEngineCommand(
		cmd.Context(),
		logger,
		scoreConfig,
		args,
		createInput,
		scoreOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to score document: %w", err)
	}
	logger.Info("Document scoring completed successfully")
	return nil
}
