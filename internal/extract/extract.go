// Package extract turns raw message text into candidate game actions:
// a single play number, a play call, a clock-runoff directive, or the
// presence of a keyword such as "timeout". All functions are pure.
package extract

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"gridbot/internal/domain"
)

const (
	// MinNumber and MaxNumber bound the valid play-number range.
	MinNumber = 1
	MaxNumber = 1500
)

var (
	ErrNoNumber        = errors.New("no number found in message")
	ErrMultipleNumbers = errors.New("multiple numbers found in message")
)

// SingleNumber scans text for maximal digit runs and returns the one run
// that parses to an integer in [MinNumber, MaxNumber]. Out-of-range runs
// are filtered out before ambiguity is judged, so "9999" alone fails with
// ErrNoNumber while "I'll go with 42 this time" succeeds with 42.
func SingleNumber(text string) (int, error) {
	var candidates []int
	run := -1
	flush := func(end int) {
		if run < 0 {
			return
		}
		n, err := strconv.Atoi(text[run:end])
		if err == nil && n >= MinNumber && n <= MaxNumber {
			candidates = append(candidates, n)
		}
		run = -1
	}

	for i, r := range text {
		if r >= '0' && r <= '9' {
			if run < 0 {
				run = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))

	switch len(candidates) {
	case 0:
		return 0, ErrNoNumber
	case 1:
		return candidates[0], nil
	default:
		return 0, ErrMultipleNumbers
	}
}

// ContainsKeyword reports whether text contains keyword as a whole word,
// case-insensitively. Multi-word keywords match across any run of spaces.
func ContainsKeyword(text, keyword string) bool {
	lower := strings.ToLower(text)
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return false
	}

	for start := 0; ; {
		idx := strings.Index(lower[start:], kw)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(kw)
		if boundaryBefore(lower, idx) && boundaryAfter(lower, end) {
			return true
		}
		start = idx + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordRune(rune(s[i-1]))
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	return !isWordRune(rune(s[i]))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// playCallKeywords maps keyword phrases to play calls. Longer phrases are
// listed first so "two point" wins over a bare "point".
var playCallKeywords = []struct {
	phrase string
	call   domain.PlayCall
}{
	{"field goal", domain.PlayFieldGoal},
	{"two point", domain.PlayTwoPoint},
	{"run", domain.PlayRun},
	{"pass", domain.PlayPass},
	{"spike", domain.PlaySpike},
	{"kneel", domain.PlayKneel},
	{"punt", domain.PlayPunt},
	{"pat", domain.PlayPAT},
}

// PlayCallFrom returns the offensive play call named in text, or "" when
// no (or more than one) play-call keyword is present.
func PlayCallFrom(text string) domain.PlayCall {
	var found domain.PlayCall
	for _, pk := range playCallKeywords {
		if ContainsKeyword(text, pk.phrase) {
			if found != "" && found != pk.call {
				return ""
			}
			found = pk.call
		}
	}
	return found
}

// RunoffTypeFrom returns the clock-runoff directive named in text,
// defaulting to NORMAL.
func RunoffTypeFrom(text string) domain.RunoffType {
	switch {
	case ContainsKeyword(text, "chew"):
		return domain.RunoffChew
	case ContainsKeyword(text, "hurry"):
		return domain.RunoffHurry
	default:
		return domain.RunoffNormal
	}
}

// TimeoutCalled reports whether the message asks for a timeout.
func TimeoutCalled(text string) bool {
	return ContainsKeyword(text, "timeout")
}
