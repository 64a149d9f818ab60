package relationships

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// CanonicalID parses id as a UUID and returns its lowercase hyphenated form.
// All identifier comparisons in this package use canonical ids.
func CanonicalID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return parsed.String(), nil
}

func contains(set []string, id string) bool {
	_, found := slices.BinarySearch(set, id)
	return found
}

// add inserts id into the sorted set when absent.
func add(set []string, id string) []string {
	i, found := slices.BinarySearch(set, id)
	if found {
		return set
	}
	return slices.Insert(set, i, id)
}

// remove deletes id from the sorted set when present.
func remove(set []string, id string) []string {
	i, found := slices.BinarySearch(set, id)
	if !found {
		return set
	}
	return slices.Delete(set, i, i+1)
}
