package services

import "github.com/relink-dev/relink/internal/models"

// securityQuestions is the fixed identity-verification catalog. Four of the
// six questions are required; answers are collected at account setup and
// compared fuzzily during recovery.
var securityQuestions = []models.SecurityQuestion{
	{ID: 1, Question: "What was the name of your first pet?", Required: true},
	{ID: 2, Question: "In what city were you born?", Required: true},
	{ID: 3, Question: "What was the model of your first car?", Required: true},
	{ID: 4, Question: "What is your mother's maiden name?", Required: true},
	{ID: 5, Question: "What was the name of your elementary school?", Required: false},
	{ID: 6, Question: "What street did you grow up on?", Required: false},
}

// QuestionCatalog serves the static security question list
type QuestionCatalog struct{}

// NewQuestionCatalog creates a new question catalog
func NewQuestionCatalog() *QuestionCatalog {
	return &QuestionCatalog{}
}

// List returns the questions in stable order. Callers get a copy so the
// catalog stays immutable.
func (c *QuestionCatalog) List() []models.SecurityQuestion {
	questions := make([]models.SecurityQuestion, len(securityQuestions))
	copy(questions, securityQuestions)
	return questions
}

// QuestionByID returns the catalog entry for an id, if present
func (c *QuestionCatalog) QuestionByID(id int) (models.SecurityQuestion, bool) {
	for _, q := range securityQuestions {
		if q.ID == id {
			return q, true
		}
	}
	return models.SecurityQuestion{}, false
}
