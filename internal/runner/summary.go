package runner

import (
	"regexp"
	"strconv"
)

var (
	ranRegex   = regexp.MustCompile(`Ran (\d+) of (\d+) Specs?`)
	countRegex = regexp.MustCompile(`(\d+) Passed \| (\d+) Failed(?: \| (\d+) Flaked)? \| (\d+) Pending \| (\d+) Skipped`)
)

// Summary is the spec count report ginkgo prints at the end of a suite.
type Summary struct {
	Ran     int `json:"ran"`
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
	Skipped int `json:"skipped"`
}

// ParseSummary returns false when the output has no ginkgo report, e.g. when
// the binary crashed before running any spec.
func ParseSummary(output string) (summary Summary, ok bool) {
	ran := ranRegex.FindAllStringSubmatch(output, -1)
	counts := countRegex.FindAllStringSubmatch(output, -1)
	if len(ran) == 0 || len(counts) == 0 {
		return
	}

	last := ran[len(ran)-1]
	c := counts[len(counts)-1]
	fields := []struct {
		dst *int
		src string
	}{
		{&summary.Ran, last[1]},
		{&summary.Total, last[2]},
		{&summary.Passed, c[1]},
		{&summary.Failed, c[2]},
		{&summary.Pending, c[4]},
		{&summary.Skipped, c[5]},
	}
	for _, f := range fields {
		n, err := strconv.Atoi(f.src)
		if err != nil {
			return Summary{}, false
		}
		*f.dst = n
	}
	return summary, true
}
