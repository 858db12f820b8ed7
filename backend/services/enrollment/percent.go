package enrollment

import "strconv"

// ComputeProgressPercent returns the share of the course's current lessons
// found in completed. Completed IDs of lessons that no longer exist are
// ignored, so the result never exceeds 100. A course without lessons is 0%.
func ComputeProgressPercent(completed []string, lessonIDs []uint) float64 {
	if len(lessonIDs) == 0 {
		return 0
	}
	return float64(effectiveCount(completed, lessonIDs)) / float64(len(lessonIDs)) * 100
}

func effectiveCount(completed []string, lessonIDs []uint) int {
	valid := make(map[string]struct{}, len(lessonIDs))
	for _, id := range lessonIDs {
		valid[strconv.FormatUint(uint64(id), 10)] = struct{}{}
	}

	n := 0
	seen := make(map[string]struct{}, len(completed))
	for _, id := range completed {
		if _, ok := valid[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		n++
	}
	return n
}
