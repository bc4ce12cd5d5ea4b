package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuestionCreate(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		req    QuestionCreateRequest
		fields []string
	}{
		{
			name: "valid",
			req:  QuestionCreateRequest{Text: "2+2?", Options: []string{"3", "4"}, CorrectIndex: 1},
		},
		{
			name:   "missing text",
			req:    QuestionCreateRequest{Text: "   ", Options: []string{"a", "b"}},
			fields: []string{"text"},
		},
		{
			name:   "single option",
			req:    QuestionCreateRequest{Text: "q", Options: []string{"a"}},
			fields: []string{"options"},
		},
		{
			name:   "blank option",
			req:    QuestionCreateRequest{Text: "q", Options: []string{"a", "  "}},
			fields: []string{"options[1]"},
		},
		{
			name:   "index out of range",
			req:    QuestionCreateRequest{Text: "q", Options: []string{"a", "b"}, CorrectIndex: 2},
			fields: []string{"correct_index"},
		},
		{
			name:   "negative index",
			req:    QuestionCreateRequest{Text: "q", Options: []string{"a", "b"}, CorrectIndex: -1},
			fields: []string{"correct_index"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateQuestionCreate(&tt.req)
			if len(tt.fields) == 0 {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			var got []string
			for _, e := range errs {
				got = append(got, e.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestValidateLoginRejectsSearchOnly(t *testing.T) {
	v := New()

	errs := v.Validate(&LoginRequest{Email: "a@x.com", SearchOnly: true})
	require.Len(t, errs, 2)
	assert.Equal(t, "password", errs[0].Field)
	assert.Equal(t, "searchOnly", errs[1].Field)
	assert.Equal(t, "no_search_only", errs[1].Rule)

	assert.Empty(t, v.Validate(&LoginRequest{Email: "a@x.com", Password: "pw"}))
}

func TestValidateUpdateAttempt(t *testing.T) {
	v := New()
	score, total, negative := 6, 5, -1

	errs := v.Validate(&UpdateAttemptRequest{Email: "a@x.com", Score: &score, TotalQuestions: &total})
	require.Len(t, errs, 1)
	assert.Equal(t, "score", errs[0].Field)

	errs = v.Validate(&UpdateAttemptRequest{Email: "a@x.com", Violations: &negative})
	require.Len(t, errs, 1)
	assert.Equal(t, "violations", errs[0].Field)
}

func TestValidateEventType(t *testing.T) {
	v := New()

	assert.Empty(t, v.Validate(&ViolationEventRequest{Email: "a@x.com", Type: "tab_hidden"}))

	errs := v.Validate(&ViolationEventRequest{Email: "a@x.com", Type: "screenshot"})
	require.Len(t, errs, 1)
	assert.Equal(t, "is not a known proctoring event", errs[0].Message)
}
