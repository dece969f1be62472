package report

import (
	"strings"
	"testing"

	"cohortprep/domain/core"
	"cohortprep/domain/dataset"
	"cohortprep/domain/preprocess"
	"cohortprep/domain/profiling"
)

func TestRunReport_Markdown(t *testing.T) {
	ds := dataset.NewDataset("cohort.csv")
	ds.DisplayName = "Sleep Study"
	ds.ParticipantCount = 12
	ds.TimestepCount = 28
	ds.MissingRate = 0.2

	run := dataset.NewRun(ds.ID, preprocess.Pipeline{Steps: []preprocess.Step{
		{Kind: preprocess.StepImpute, Strategy: preprocess.ImputeMean},
		{Kind: preprocess.StepDownsample, Windows: 4},
	}})
	run.InputFingerprint = "abc123"
	run.OutputFingerprint = "def456"
	run.OutputTimesteps = 4
	run.OutputProfile = &profiling.CohortProfile{
		Variables: []profiling.VariableProfile{
			{VarKey: core.VariableKey("hr"), Health: profiling.HealthComplete},
			{VarKey: core.VariableKey("spo2"), Health: profiling.HealthSparse},
		},
	}
	run.MarkCompleted()

	md := (&RunReport{Dataset: ds, Run: run}).Markdown()

	for _, want := range []string{
		"Sleep Study",
		"impute (mean)",
		"downsample (4 windows, mean)",
		"`abc123`",
		"`def456`",
		"| Timesteps | 28 | 4 |",
		"`spo2` is sparse",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}
}

func TestRenderHTML_Tables(t *testing.T) {
	out := string(RenderHTML([]byte("| a | b |\n|---|---|\n| 1 | 2 |\n")))
	if !strings.Contains(out, "<table>") {
		t.Errorf("expected table markup, got: %s", out)
	}
}
