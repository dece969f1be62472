package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"cohortprep/domain/dataset"
	"cohortprep/domain/profiling"
)

// RunReport renders a preprocess run as markdown for audit trails and as
// HTML for the browser.
type RunReport struct {
	Dataset *dataset.Dataset
	Run     *dataset.Run
}

// Markdown builds the report source
func (r *RunReport) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Preprocess Run %s\n\n", r.Run.ID)
	fmt.Fprintf(&b, "Dataset: **%s** (`%s`)\n\n", r.Dataset.DisplayName, r.Dataset.ID)
	fmt.Fprintf(&b, "Status: **%s**", r.Run.Status)
	if r.Run.ErrorMessage != "" {
		fmt.Fprintf(&b, " (%s)", r.Run.ErrorMessage)
	}
	b.WriteString("\n\n")

	if d := r.Run.Duration(); d > 0 {
		fmt.Fprintf(&b, "Completed in %s.\n\n", d.Round(time.Millisecond))
	}

	b.WriteString("## Pipeline\n\n")
	for i, step := range r.Run.Pipeline.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step.Describe())
	}
	b.WriteString("\n")

	b.WriteString("## Shape\n\n")
	b.WriteString("| | Input | Output |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| Participants | %d | %d |\n", r.Dataset.ParticipantCount, r.Dataset.ParticipantCount)
	fmt.Fprintf(&b, "| Timesteps | %d | %d |\n", r.Dataset.TimestepCount, r.Run.OutputTimesteps)
	fmt.Fprintf(&b, "| Missing rate | %.1f%% | %.1f%% |\n\n",
		r.Dataset.MissingRate*100, r.Run.OutputMissing*100)

	b.WriteString("## Fingerprints\n\n")
	fmt.Fprintf(&b, "- Input: `%s`\n", r.Run.InputFingerprint)
	if r.Run.OutputFingerprint != "" {
		fmt.Fprintf(&b, "- Output: `%s`\n", r.Run.OutputFingerprint)
	}
	b.WriteString("\n")

	if r.Run.OutputProfile != nil {
		writeProfileSection(&b, r.Run.OutputProfile)
	}

	if r.Run.OutputPath != "" {
		fmt.Fprintf(&b, "Exported panel: `%s`\n", r.Run.OutputPath)
	}

	return b.String()
}

// HTML renders the markdown report to a standalone HTML fragment
func (r *RunReport) HTML() []byte {
	return RenderHTML([]byte(r.Markdown()))
}

// RenderHTML converts markdown to HTML with tables enabled
func RenderHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML(md, p, renderer)
}

func writeProfileSection(b *strings.Builder, profile *profiling.CohortProfile) {
	b.WriteString("## Output Profile\n\n")
	b.WriteString("| Variable | Health | Missing | Mean | Std | Min | Max | Normal |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, v := range profile.Variables {
		normal := "no"
		if v.Distribution.IsNormal {
			normal = "yes"
		}
		fmt.Fprintf(b, "| %s | %s | %.1f%% | %.3f | %.3f | %.3f | %.3f | %s |\n",
			v.VarKey, v.Health, v.MissingStats.MissingRate*100,
			v.Summary.Mean, v.Summary.StdDev, v.Summary.Min, v.Summary.Max, normal)
	}
	b.WriteString("\n")

	if sparse := profile.SparseVariables(); len(sparse) > 0 {
		b.WriteString("### Warnings\n\n")
		for _, key := range sparse {
			fmt.Fprintf(b, "- variable `%s` is sparse or empty in the output\n", key)
		}
		b.WriteString("\n")
	}
}
