package pipeline

import (
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ionbatch/internal/outcome"
)

var printer = message.NewPrinter(language.English)

// writeFinalLine prints the aggregate timing line. It runs on every exit path.
func writeFinalLine(w io.Writer, result Result, err error) {
	elapsed := result.Elapsed.Round(time.Millisecond)
	if result.Reconciled == 0 && err != nil {
		printer.Fprintf(w, "Run aborted after %v: %v\n", elapsed, err)
		return
	}
	printer.Fprintf(w, "Processed %d instances in %v (%d success, %d no results, %d timeout, %d error)\n",
		result.Reconciled,
		elapsed,
		result.Counts[outcome.KindSuccess],
		result.Counts[outcome.KindNoResults],
		result.Counts[outcome.KindTimeout],
		result.Counts[outcome.KindError],
	)
	if result.Reconciled > 0 {
		perInstance := result.Elapsed.Seconds() / float64(result.Reconciled)
		printer.Fprintf(w, "Average %.2f s per instance, at most %d instances resident\n", perInstance, result.MaxResident)
	}
}
