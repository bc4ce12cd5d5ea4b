package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/proctoring"
)

// registerBusinessRules registers custom business rule validators
func (v *Validator) registerBusinessRules() {
	v.validate.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return proctoring.EventType(fl.Field().String()).Valid()
	})

	v.validate.RegisterValidation("no_search_only", func(fl validator.FieldLevel) bool {
		return !fl.Field().Bool()
	})

	// The correct index must point at one of the options
	v.validate.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(QuestionCreateRequest)
		if len(req.Options) > 0 && req.CorrectIndex >= len(req.Options) {
			sl.ReportError(req.CorrectIndex, "correct_index", "CorrectIndex", "option_index", "")
		}
	}, QuestionCreateRequest{})

	v.validate.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(UpdateAttemptRequest)
		if req.Score != nil && req.TotalQuestions != nil && *req.Score > *req.TotalQuestions {
			sl.ReportError(*req.Score, "score", "Score", "score_within_total", "")
		}
	}, UpdateAttemptRequest{})
}

// ValidateQuestionCreate trims the question in place before validating it
func (v *Validator) ValidateQuestionCreate(req *QuestionCreateRequest) ValidationErrors {
	req.Text = strings.TrimSpace(req.Text)
	for i, opt := range req.Options {
		req.Options[i] = strings.TrimSpace(opt)
	}
	return v.Validate(req)
}

// ValidateCreateUser normalises whitespace before validating
func (v *Validator) ValidateCreateUser(req *CreateUserRequest) ValidationErrors {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.Number = strings.TrimSpace(req.Number)
	req.Location = strings.TrimSpace(req.Location)
	return v.Validate(req)
}
