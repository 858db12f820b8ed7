package onboarding

// Question is one item of the fixed onboarding assessment.
type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"-"`
	Points       int64    `json:"points"`
}

// DefaultQuiz returns the founder assessment shown to every new student.
func DefaultQuiz() []Question {
	return []Question{
		{
			ID:           "problem-first",
			Prompt:       "What should a new startup idea begin with?",
			Options:      []string{"A logo", "A real customer problem", "A pitch deck", "An office"},
			CorrectIndex: 1,
			Points:       100,
		},
		{
			ID:           "mvp",
			Prompt:       "What is an MVP?",
			Options:      []string{"Most Valuable Player", "A finished product", "The smallest product that tests your idea", "A marketing plan"},
			CorrectIndex: 2,
			Points:       100,
		},
		{
			ID:           "validation",
			Prompt:       "Which is the strongest signal that people want your product?",
			Options:      []string{"Friends say it is cool", "Likes on a post", "People pre-order or pay", "You really like it"},
			CorrectIndex: 2,
			Points:       100,
		},
		{
			ID:           "revenue",
			Prompt:       "Revenue minus costs is called…",
			Options:      []string{"Profit", "Valuation", "Equity", "Turnover"},
			CorrectIndex: 0,
			Points:       100,
		},
		{
			ID:           "pivot",
			Prompt:       "Changing direction after learning from customers is called…",
			Options:      []string{"Quitting", "Scaling", "Pivoting", "Bootstrapping"},
			CorrectIndex: 2,
			Points:       100,
		},
	}
}

// PublicQuestion is a Question without its answer key.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Points  int64    `json:"points"`
}

// PublicQuestions strips correct answers so the quiz can be sent to clients.
func PublicQuestions(quiz []Question) []PublicQuestion {
	out := make([]PublicQuestion, 0, len(quiz))
	for _, q := range quiz {
		out = append(out, PublicQuestion{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: append([]string(nil), q.Options...),
			Points:  q.Points,
		})
	}
	return out
}
