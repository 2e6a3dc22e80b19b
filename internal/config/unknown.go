package config

import (
	"errors"
	"fmt"
	"sort"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown keys are detected.
const maxLevenshteinDistance = 3

// knownTopLevelKeys are the valid top-level keys of a tricks file.
var knownTopLevelKeys = map[string]bool{
	KeyTricks:      true,
	KeySearchRoots: true,
	KeyPythonPath:  true,
}

// knownTopLevelKeysList is the sorted slice form of knownTopLevelKeys for
// Levenshtein matching. Sorted for deterministic suggestions when two
// candidates have the same edit distance.
var knownTopLevelKeysList = func() []string {
	keys := make([]string, 0, len(knownTopLevelKeys))
	for k := range knownTopLevelKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys returns an error with "did you mean?" suggestions for
// each top-level key of doc that a tricks file does not define.
func checkUnknownKeys(path string, doc map[string]any) error {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		if !knownTopLevelKeys[k] {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	var errs []error

	for _, k := range keys {
		errs = append(errs, &ConfigError{Path: path, Key: k, Err: unknownKeyError(k)})
	}

	return errors.Join(errs...)
}

func unknownKeyError(key string) error {
	if suggestion := closestMatch(key, knownTopLevelKeysList); suggestion != "" {
		return fmt.Errorf("unknown key, did you mean %q?", suggestion)
	}

	return errors.New("unknown key")
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
