package app

import "quiz-arena/internal/domain"

// QuestionScore is the contribution of one answer to a quiz score.
//
//	correct:   positivePoints + floor((time - spent) / 3)
//	otherwise: -negativePoints
//
// spent is clamped to [0, time]. A nil selection is never correct.
func QuestionScore(q domain.Question, selected *int, timeSpent *int) int {
	spent := 0
	if timeSpent != nil {
		spent = *timeSpent
	}
	if spent < 0 {
		spent = 0
	}
	if spent > q.TimeLimit {
		spent = q.TimeLimit
	}

	correct := selected != nil && *selected == q.CorrectAnswer
	if !correct {
		return -q.NegativePoints
	}
	base := q.PositivePoints
	bonus := 0
	if base > 0 {
		// both operands are non-negative, so integer division floors
		bonus = (q.TimeLimit - spent) / 3
	}
	return base + bonus
}

// ScoreAnswers totals answers against the quiz's member questions. Answers
// for questions outside the quiz contribute nothing, and only the first
// answer per question counts.
func ScoreAnswers(questions []domain.Question, answers []domain.Answer) int {
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	seen := make(map[string]struct{}, len(answers))
	total := 0
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		if _, dup := seen[a.QuestionID]; dup {
			continue
		}
		seen[a.QuestionID] = struct{}{}
		total += QuestionScore(q, a.SelectedAnswer, a.TimeSpent)
	}
	return total
}
