package domain

// Score computes the percentage of questions answered correctly.
// Answers map question IDs to chosen option indices; a missing entry
// counts as unanswered. A quiz with no questions cannot be scored and
// yields ErrNoQuestions instead of a NaN result.
func Score(q Quiz, answers map[string]int) (float64, error) {
	if len(q.Questions) == 0 {
		return 0, ErrNoQuestions
	}
	correct := 0
	for _, question := range q.Questions {
		if chosen, ok := answers[question.ID]; ok && chosen == question.CorrectOption {
			correct++
		}
	}
	return float64(correct) / float64(len(q.Questions)) * 100, nil
}
