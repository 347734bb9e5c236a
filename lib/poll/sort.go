package poll

import "sort"

type byID []Record

func (s byID) Len() int           { return len(s) }
func (s byID) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s byID) Less(i, j int) bool { return s[i].ID < s[j].ID }

// sortedByID returns a sorted copy; callers' slices are never reordered.
func sortedByID(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Stable(byID(sorted))

	return sorted
}
