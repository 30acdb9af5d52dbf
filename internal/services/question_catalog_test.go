package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuestionCatalog_List(t *testing.T) {
	catalog := NewQuestionCatalog()

	questions := catalog.List()
	assert.Len(t, questions, 6)

	required := 0
	for _, q := range questions {
		assert.NotZero(t, q.ID)
		assert.NotEmpty(t, q.Question)
		if q.Required {
			required++
		}
	}
	assert.Equal(t, 4, required)
}

func TestQuestionCatalog_ListReturnsCopy(t *testing.T) {
	catalog := NewQuestionCatalog()

	first := catalog.List()
	first[0].Question = "mutated"

	second := catalog.List()
	assert.NotEqual(t, "mutated", second[0].Question)
}

func TestQuestionCatalog_QuestionByID(t *testing.T) {
	catalog := NewQuestionCatalog()

	q, ok := catalog.QuestionByID(1)
	assert.True(t, ok)
	assert.Equal(t, 1, q.ID)

	_, ok = catalog.QuestionByID(99)
	assert.False(t, ok)
}
