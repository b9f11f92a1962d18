package smoke

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteReport prints a status table for report.
func WriteReport(w io.Writer, report Report) error {
	fmt.Fprintf(w, "Proxy: %s\n\n", report.BaseURL)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROBE\tSTATUS\tLATENCY\tRESULT")
	for _, res := range report.Results {
		status := "-"
		if res.Status != 0 {
			status = fmt.Sprintf("%d", res.Status)
		}
		result := "ok"
		if res.Err != nil {
			result = res.Err.Error()
		} else if !res.OK() {
			result = "unexpected status"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", res.Probe.Name, status, res.Latency.Round(time.Millisecond), result)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d/%d probes ok in %s\n",
		len(report.Results)-report.Failed(), len(report.Results), report.Duration.Round(time.Millisecond))
	return err
}
