package inventory

import "strconv"

// Selection tracks the detected-ID choices offered to the operator. The choices
// change only when the set of detected IDs changes, so a pick survives frames
// that see the same markers.
type Selection struct {
	options []string
}

// Update takes the sorted distinct IDs of the current frame. When the set
// differs from the current options it replaces them and reports changed, with
// the suggested pick being the last option (empty when nothing is detected).
func (s *Selection) Update(ids []int) (options []string, pick string, changed bool) {
	next := make([]string, len(ids))
	for i, id := range ids {
		next[i] = strconv.Itoa(id)
	}
	if sameSet(next, s.options) {
		return s.options, "", false
	}

	s.options = next
	if len(next) > 0 {
		pick = next[len(next)-1]
	}
	return next, pick, true
}

// Options returns the current choices.
func (s *Selection) Options() []string {
	return s.options
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			return false
		}
	}
	return true
}
