package safety

import (
	"math"
	"strings"
	"unicode"
)

// Gibberish detection runs before any moderation call: it is cheap, local,
// and catches keyboard-mashing that moderation providers happily pass.

const (
	maxAlphabetEntropy   = 4.700439718141092 // log2(26)
	entropyThreshold     = 0.95
	maxCharRun           = 8
	minLettersForVowels  = 8
	minVowelRatio        = 0.15
	maxSpecialCharRatio  = 0.4
	minLenForSpecialScan = 6
)

var keyboardRows = []string{"qwertyuiop", "asdfghjkl", "zxcvbnm"}

func isGibberish(message string) bool {
	if normalizedEntropy(message) > entropyThreshold {
		return true
	}
	if hasLongCharRun(message, maxCharRun) {
		return true
	}
	if isKeyboardMash(message) {
		return true
	}
	if hasVowelStarvation(message) {
		return true
	}
	if hasSpecialCharFlood(message) {
		return true
	}
	return false
}

// normalizedEntropy is the Shannon entropy of the character distribution,
// scaled against the maximum entropy of a 26-letter alphabet.
func normalizedEntropy(s string) float64 {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0
	}
	freq := make(map[rune]int, len(runes))
	for _, r := range runes {
		freq[r]++
	}
	entropy := 0.0
	n := float64(len(runes))
	for _, count := range freq {
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy / maxAlphabetEntropy
}

func hasLongCharRun(s string, limit int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= limit {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

// isKeyboardMash flags messages where more than half of the longer words are
// spelled entirely from a single keyboard row.
func isKeyboardMash(message string) bool {
	words := strings.Fields(strings.ToLower(message))
	longWords := 0
	mashed := 0
	for _, w := range words {
		if len([]rune(w)) <= 4 {
			continue
		}
		longWords++
		if wordFromSingleRow(w) {
			mashed++
		}
	}
	if longWords == 0 {
		return false
	}
	return float64(mashed)/float64(longWords) > 0.5
}

func wordFromSingleRow(word string) bool {
	for _, row := range keyboardRows {
		all := true
		for _, r := range word {
			if !strings.ContainsRune(row, r) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func hasVowelStarvation(message string) bool {
	letters := 0
	vowels := 0
	for _, r := range strings.ToLower(message) {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if strings.ContainsRune("aeiou", r) {
			vowels++
		}
	}
	if letters < minLettersForVowels {
		return false
	}
	return float64(vowels)/float64(letters) < minVowelRatio
}

func hasSpecialCharFlood(message string) bool {
	runes := []rune(message)
	if len(runes) < minLenForSpecialScan {
		return false
	}
	special := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		special++
	}
	return float64(special)/float64(len(runes)) > maxSpecialCharRatio
}
