package morning

import (
	"regexp"
	"strings"
)

var numberPattern = regexp.MustCompile(`\b(\d+|two|three|four|five|six|seven|eight|nine|ten)\b`)

var wordNumbers = map[string]int{
	"two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var taskNouns = []string{
	"meeting", "task", "call", "email", "errand", "appointment",
	"report", "ticket", "review", "deliverable", "thing to do",
}

var deadlineMarkers = []string{
	"deadline", "due", "presentation", "asap", "urgent", "by tomorrow",
	"by friday", "by monday", "by the end of", "running out of time",
}

var stressMarkers = []string{
	"stressed", "stress", "anxious", "worried", "pressure", "nervous",
	"on edge", "tense",
}

var overwhelmMarkers = []string{
	"too much", "overwhelmed", "can't cope", "where to start",
	"impossible", "drowning", "all at once",
}

var lowEnergyMarkers = []string{
	"tired", "exhausted", "drained", "slept badly", "didn't sleep",
	"no energy", "groggy", "foggy",
}

var highEnergyMarkers = []string{
	"energized", "motivated", "great", "rested", "slept well",
	"ready to go", "feeling good", "pumped",
}

// signals are the lexical features extracted from morning utterances.
type signals struct {
	taskCount  int
	deadline   bool
	stress     bool
	overwhelm  bool
	lowEnergy  bool
	highEnergy bool
}

// extractSignals scans the combined morning text for lightweight lexical
// features: explicit task/meeting counts, deadline language, stress and
// energy markers.
func extractSignals(text string) signals {
	lower := strings.ToLower(text)

	var sig signals
	sig.deadline = containsAny(lower, deadlineMarkers)
	sig.stress = containsAny(lower, stressMarkers)
	sig.overwhelm = containsAny(lower, overwhelmMarkers)
	sig.lowEnergy = containsAny(lower, lowEnergyMarkers)
	sig.highEnergy = containsAny(lower, highEnergyMarkers)
	sig.taskCount = countTasks(lower)
	return sig
}

// countTasks looks for an explicit count next to a task noun ("5 meetings",
// "three tasks"); otherwise it counts distinct task nouns mentioned.
func countTasks(lower string) int {
	words := strings.Fields(lower)
	for i, w := range words {
		n := parseCount(w)
		if n == 0 || i+1 >= len(words) {
			continue
		}
		next := strings.Trim(words[i+1], ".,!?")
		for _, noun := range taskNouns {
			if strings.HasPrefix(next, noun) {
				return n
			}
		}
	}

	count := 0
	for _, noun := range taskNouns {
		if strings.Contains(lower, noun) {
			count++
		}
	}
	return count
}

func parseCount(w string) int {
	w = strings.Trim(w, ".,!?")
	if n, ok := wordNumbers[w]; ok {
		return n
	}
	if !numberPattern.MatchString(w) {
		return 0
	}
	n := 0
	for _, r := range w {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
