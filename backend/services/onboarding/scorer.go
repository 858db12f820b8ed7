// Package onboarding scores the onboarding assessment.
package onboarding

// Scorer turns a set of quiz answers into an XP award and a starting tier.
//
// The elevated-tier threshold is a policy value, not derived from the XP table.
type Scorer struct {
	BaseAward int64
	// ElevatedThreshold is the number of correct answers that earns
	// ElevatedTierID. Zero turns elevation off and every user starts at
	// BaseTierID.
	ElevatedThreshold int
	BaseTierID        string
	ElevatedTierID    string
}

// Result is the outcome of scoring one answer set.
type Result struct {
	TotalPoints    int64  `json:"total_points"`
	CorrectCount   int    `json:"correct_count"`
	QuestionCount  int    `json:"question_count"`
	AssignedTierID string `json:"assigned_tier_id"`
	FinalXP        int64  `json:"final_xp"`
}

// Score walks the canonical quiz, so unanswered questions count as wrong and
// answers for unknown question IDs are ignored.
func (s Scorer) Score(answers map[string]int, quiz []Question) Result {
	res := Result{QuestionCount: len(quiz)}

	for _, q := range quiz {
		selected, ok := answers[q.ID]
		if !ok || selected != q.CorrectIndex {
			continue
		}
		res.TotalPoints += q.Points
		res.CorrectCount++
	}

	res.AssignedTierID = s.BaseTierID
	if s.ElevatedThreshold > 0 && res.CorrectCount >= s.ElevatedThreshold {
		res.AssignedTierID = s.ElevatedTierID
	}
	res.FinalXP = s.BaseAward + res.TotalPoints

	return res
}
