package main

import (
	"time"

	"github.com/spf13/cobra"

	appdiag "github.com/bryanwahyu/enginesound/internal/application/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/config"
	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/infra/decoder"
	ffmpegrunner "github.com/bryanwahyu/enginesound/internal/infra/executor/ffmpeg"
)

// commandContext holds the persistent flags shared by subcommands.
type commandContext struct {
	ffmpegBin       string
	suggestionsFile string
	timeout         time.Duration
	maxSeconds      float64
	forceJSON       bool
	forceTable      bool
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "diagnose",
		Short:         "Diagnose engine sound recordings from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.ffmpegBin, "ffmpeg", "ffmpeg", "ffmpeg binary used for non-WAV recordings")
	flags.StringVar(&ctx.suggestionsFile, "suggestions", "", "YAML file overriding repair suggestions")
	flags.DurationVar(&ctx.timeout, "decode-timeout", 30*time.Second, "Maximum time spent decoding one file")
	flags.Float64Var(&ctx.maxSeconds, "max-seconds", decoder.DefaultMaxSeconds, "Reject recordings longer than this many seconds")
	flags.BoolVar(&ctx.forceJSON, "json", false, "Write JSON even on a terminal")
	flags.BoolVar(&ctx.forceTable, "table", false, "Write a table even when stdout is not a terminal")
	rootCmd.MarkFlagsMutuallyExclusive("json", "table")

	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newSuggestionsCommand(ctx))

	return rootCmd
}

func (c *commandContext) table() (*diagnosis.SuggestionTable, error) {
	return config.LoadSuggestions(c.suggestionsFile)
}

func (c *commandContext) pipeline() (*appdiag.Pipeline, error) {
	table, err := c.table()
	if err != nil {
		return nil, err
	}
	runner := ffmpegrunner.NewRunner(c.ffmpegBin, "")
	return appdiag.NewPipeline(decoder.New(runner, 0, decoder.WithMaxSeconds(c.maxSeconds)), nil, table, c.timeout), nil
}

func (c *commandContext) wantJSON(cmd *cobra.Command) bool {
	switch {
	case c.forceJSON:
		return true
	case c.forceTable:
		return false
	}
	return !isTerminal(cmd.OutOrStdout())
}
