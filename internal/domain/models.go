package domain

import (
	"slices"
	"time"
)

// QuizStatus is the persisted publishing state of a quiz.
type QuizStatus string

const (
	QuizInactive  QuizStatus = "inactive"
	QuizActive    QuizStatus = "active"
	QuizCompleted QuizStatus = "completed"
)

// Valid reports whether s is one of the persisted statuses.
func (s QuizStatus) Valid() bool {
	switch s {
	case QuizInactive, QuizActive, QuizCompleted:
		return true
	}
	return false
}

// Difficulty labels a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// User is a registered participant or administrator.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	ProfileURL   string    `json:"profileUrl,omitempty"`
	PasswordHash string    `json:"-"`
	PasswordSet  bool      `json:"passwordSet"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Question is a multiple-choice question shared between quizzes.
// QuizIDs is the membership set; a question has no owning quiz.
type Question struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	Options        []string   `json:"options"`
	CorrectAnswer  int        `json:"correctAnswer"`
	Category       string     `json:"category"`
	Difficulty     Difficulty `json:"difficulty"`
	PositivePoints int        `json:"positivePoints"`
	NegativePoints int        `json:"negativePoints"`
	TimeLimit      int        `json:"time"`
	QuizIDs        []string   `json:"quizIds"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// BelongsTo reports whether quizID is in the question's membership set.
func (q Question) BelongsTo(quizID string) bool {
	return slices.Contains(q.QuizIDs, quizID)
}

// PlayerQuestion is the player-facing projection of a Question. It has no
// answer key field at all, so it cannot leak through serialization.
type PlayerQuestion struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	Options        []string   `json:"options"`
	Category       string     `json:"category"`
	Difficulty     Difficulty `json:"difficulty"`
	PositivePoints int        `json:"positivePoints"`
	NegativePoints int        `json:"negativePoints"`
	TimeLimit      int        `json:"time"`
}

// Quiz is a collection of questions derived from membership.
type Quiz struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         QuizStatus `json:"status"`
	TotalTime      int        `json:"totalTime"`
	TotalQuestions int        `json:"totalQuestions"`
	CreatedAt      time.Time  `json:"createdAt"`
	Questions      []Question `json:"questions"`
}

// QuestionTime sums the time limits of the hydrated questions.
func (q Quiz) QuestionTime() int {
	total := 0
	for _, question := range q.Questions {
		total += question.TimeLimit
	}
	return total
}

// PlayerQuiz is a quiz with answer keys stripped.
type PlayerQuiz struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Status         QuizStatus       `json:"status"`
	TotalTime      int              `json:"totalTime"`
	TotalQuestions int              `json:"totalQuestions"`
	CreatedAt      time.Time        `json:"createdAt"`
	Questions      []PlayerQuestion `json:"questions"`
}

// Session is a server-tracked timer for an in-progress attempt.
type Session struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	QuizID      string     `json:"quizId"`
	StartedAt   time.Time  `json:"startedAt"`
	Active      bool       `json:"isActive"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Result is a completed, scored attempt. At most one exists per (user, quiz).
type Result struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	QuizID         string    `json:"quizId"`
	PlayerName     string    `json:"playerName"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	TimeSpent      int       `json:"timeSpent"`
	CompletedAt    time.Time `json:"completedAt"`
}

// Answer is one submitted selection. A nil SelectedAnswer is an unanswered
// question; a nil TimeSpent counts as zero.
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer *int   `json:"selectedAnswer"`
	TimeSpent      *int   `json:"timeSpent,omitempty"`
}

// Submission is the body of a result submission.
type Submission struct {
	UserID  string   `json:"userId"`
	QuizID  string   `json:"quizId"`
	Answers []Answer `json:"answers"`
	// Score is only honoured on the deprecated sessionless path with no answers.
	Score *int `json:"score,omitempty"`
}
