package supervisor

import (
	"regexp"
	"strconv"
	"strings"
)

// Update is the effect of one observed output line on an operation status.
type Update struct {
	Percent    int    // 0..100, -1 when the line carried no percentage
	Phase      string // recognized phase word, empty when none
	Completion bool   // line announces finished work or a no-op run
	NoOp       bool   // the tool reported there was nothing to do
}

var percentPattern = regexp.MustCompile(`(\d{1,3})%`)

var completionPhrases = []string{
	"completed",
	"nothing to do",
	"everything ok",
	"done",
}

// Longest phrases first so "resyncing" is not reported as "syncing".
var phasePhrases = []string{
	"initializing",
	"resyncing",
	"scrubbing",
	"verifying",
	"checking",
	"syncing",
}

// statusTextLimit bounds the snippet kept for pollers.
const statusTextLimit = 80

// ParseLine extracts progress information from one line of tool output.
// The second return is false when the line carries nothing usable.
func ParseLine(line string) (Update, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Update{}, false
	}

	update := Update{Percent: -1}
	matched := false

	if m := percentPattern.FindStringSubmatch(trimmed); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			if n > 100 {
				n = 100
			}
			update.Percent = n
			matched = true
		}
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range completionPhrases {
		if strings.Contains(lower, phrase) {
			update.Completion = true
			matched = true
			break
		}
	}
	if strings.Contains(lower, "nothing to do") {
		update.NoOp = true
	}
	for _, phrase := range phasePhrases {
		if strings.Contains(lower, phrase) {
			update.Phase = phrase
			matched = true
			break
		}
	}

	return update, matched
}

// StatusText clips an output line to the snippet length stored for pollers.
func StatusText(line string) string {
	trimmed := strings.TrimSpace(line)
	runes := []rune(trimmed)
	if len(runes) <= statusTextLimit {
		return trimmed
	}
	return string(runes[:statusTextLimit])
}
