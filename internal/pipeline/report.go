package pipeline

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/koios/screenframe/pkg/models"
)

// WriteReport renders the human-readable run summary: aggregate counts plus
// one line per failure naming the file, locale and error kind, so a failed
// run can be acted on without re-running it.
func WriteReport(w io.Writer, summary *models.RunSummary) {
	if summary.DryRun {
		fmt.Fprintf(w, "Dry run: %d file(s) would be processed\n", len(summary.Results))
		for _, r := range summary.Results {
			target := r.OutputPath
			if target == "" {
				target = "(no matching device spec)"
			}
			fmt.Fprintf(w, "  %s/%s -> %s\n", r.Locale, filepath.Base(r.InputPath), target)
		}
		return
	}

	fmt.Fprintf(w, "Processed %d file(s): %d succeeded, %d failed, %d skipped\n",
		len(summary.Results), summary.Succeeded, summary.Failed, summary.Skipped)

	for _, r := range summary.Failures() {
		fmt.Fprintf(w, "  FAILED %s/%s: %s: %s\n",
			r.Locale, filepath.Base(r.InputPath), r.ErrorKind, r.ErrorDetail)
	}

	switch {
	case summary.Promoted && summary.Failed == 0:
		fmt.Fprintln(w, "Output promoted.")
	case summary.Promoted:
		fmt.Fprintf(w, "Output promoted with %d failure(s) (best-effort mode).\n", summary.Failed)
	case summary.Failed > 0:
		fmt.Fprintln(w, "Output NOT promoted; previous output left untouched.")
	case len(summary.Results) == 0:
		fmt.Fprintln(w, "Nothing to do.")
	}
}
