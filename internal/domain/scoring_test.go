package domain

import (
	"math"
	"testing"
)

func threeQuestionQuiz() Quiz {
	return Quiz{
		ID: "quiz-1",
		Questions: []Question{
			{ID: "q1", Text: "first", Type: QuestionMultipleChoice, Options: []string{"a", "b", "c", "d"}, CorrectOption: 1},
			{ID: "q2", Text: "second", Type: QuestionMultipleChoice, Options: []string{"a", "b", "c", "d"}, CorrectOption: 1},
			{ID: "q3", Text: "third", Type: QuestionMultipleChoice, Options: []string{"a", "b", "c", "d"}, CorrectOption: 2},
		},
	}
}

func TestScoreTwoOfThree(t *testing.T) {
	score, err := Score(threeQuestionQuiz(), map[string]int{"q1": 1, "q2": 1, "q3": 3})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.Abs(score-66.6666) > 0.01 {
		t.Fatalf("expected ~66.67, got %v", score)
	}
}

func TestScorePerfectAndZero(t *testing.T) {
	quiz := threeQuestionQuiz()

	score, err := Score(quiz, map[string]int{"q1": 1, "q2": 1, "q3": 2})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 100 {
		t.Fatalf("expected 100, got %v", score)
	}

	score, err = Score(quiz, map[string]int{"q1": 0, "q2": 3, "q3": 0})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 0 {
		t.Fatalf("expected 0, got %v", score)
	}
}

func TestScoreUnansweredCountsAsWrong(t *testing.T) {
	score, err := Score(threeQuestionQuiz(), map[string]int{"q3": 2})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.Abs(score-33.3333) > 0.01 {
		t.Fatalf("expected ~33.33, got %v", score)
	}
}

func TestScoreIgnoresUnknownQuestionIDs(t *testing.T) {
	score, err := Score(threeQuestionQuiz(), map[string]int{"q1": 1, "bogus": 1})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.Abs(score-33.3333) > 0.01 {
		t.Fatalf("expected ~33.33, got %v", score)
	}
}

func TestScoreZeroQuestionsGuard(t *testing.T) {
	if _, err := Score(Quiz{ID: "empty"}, map[string]int{}); err != ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}
