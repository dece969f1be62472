package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cohortprep/adapters/ingest"
	"cohortprep/adapters/profiling"
	"cohortprep/domain/preprocess"
	"cohortprep/domain/series"
	"cohortprep/ports"
)

func main() {
	// .env is optional for offline commands
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "prep",
		Short: "Clinical cohort preprocessing toolkit",
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newProfileCmd(),
		newPreprocessCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newProfileCmd() *cobra.Command {
	var resolution string
	var workers int

	cmd := &cobra.Command{
		Use:   "profile [file]",
		Short: "Profile a cohort file without touching the database",
		Long: `Read a long-format CSV or XLSX cohort file, assemble the panel and
print the full cohort profile as JSON.

Example: prep profile cohort.csv --resolution day`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			panel, warnings, err := readPanel(cmd, args[0], resolution)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}

			profile, err := profiling.NewProfiler(workers).Profile(cmd.Context(), panel)
			if err != nil {
				return fmt.Errorf("profiling failed: %w", err)
			}
			return printJSON(profile)
		},
	}

	cmd.Flags().StringVar(&resolution, "resolution", "day", "Grid resolution: hour, day, week or month")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent variable profiling workers")

	return cmd
}

func newPreprocessCmd() *cobra.Command {
	var resolution string
	var pipelineJSON string
	var output string

	cmd := &cobra.Command{
		Use:   "preprocess [file]",
		Short: "Run a preprocessing pipeline over a cohort file",
		Long: `Read a cohort file, run the given pipeline and write the preprocessed
panel as wide-format CSV.

The pipeline is given as JSON, for example:
  prep preprocess cohort.csv -o out.csv --pipeline '{"steps":[
    {"kind":"impute","strategy":"mean"},
    {"kind":"downsample","windows":4},
    {"kind":"normalize","method":"zscore","scope":"cohort"}]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pipeline preprocess.Pipeline
			if err := json.Unmarshal([]byte(pipelineJSON), &pipeline); err != nil {
				return fmt.Errorf("malformed pipeline JSON: %w", err)
			}
			if err := pipeline.Validate(); err != nil {
				return err
			}

			panel, warnings, err := readPanel(cmd, args[0], resolution)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}

			result, err := pipeline.Run(panel)
			if err != nil {
				return fmt.Errorf("pipeline failed: %w", err)
			}

			if err := ingest.WritePanelCSV(output, result); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %s: %d participants x %d timesteps x %d variables\n",
				output, result.NumParticipants(), result.NumTimesteps(), result.NumVariables())
			return nil
		},
	}

	cmd.Flags().StringVar(&resolution, "resolution", "day", "Grid resolution: hour, day, week or month")
	cmd.Flags().StringVar(&pipelineJSON, "pipeline", "", "Pipeline specification as JSON")
	cmd.Flags().StringVarP(&output, "output", "o", "preprocessed.csv", "Output CSV path")
	cmd.MarkFlagRequired("pipeline")

	return cmd
}

func readPanel(cmd *cobra.Command, path, resolution string) (*series.Panel, []string, error) {
	res := series.Resolution(resolution)
	if !res.IsValid() {
		return nil, nil, fmt.Errorf("invalid resolution %q", resolution)
	}

	result, err := ingest.NewDataReader(nil).ReadPanel(cmd.Context(), path, ports.ReadOptions{
		Resolution: res,
	})
	if err != nil {
		return nil, nil, err
	}
	return result.Panel, result.Warnings, nil
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
