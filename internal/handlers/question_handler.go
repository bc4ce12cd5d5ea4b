package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/services"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/utils"
)

// DeleteQuestionRequest names the question to remove
type DeleteQuestionRequest struct {
	ID uint `json:"id"`
}

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
}

func NewQuestionHandler(questionService services.QuestionService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
	}
}

// ListQuizQuestions returns the questions without answer keys
// @Router /questions [get]
func (h *QuestionHandler) ListQuizQuestions(c *gin.Context) {
	questions, err := h.questionService.ListPublic(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"questions": questions})
}

// ListQuestions returns the full question bank
// @Router /admin/questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	questions, err := h.questionService.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"questions": questions})
}

// CreateQuestion adds a question to the bank
// @Summary Create question
// @Tags questions
// @Accept json
// @Produce json
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Router /admin/questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req services.CreateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), &req, currentActor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusCreated, gin.H{"question": question})
}

// DeleteQuestion removes the question named by {"id": N} in the body
// @Summary Delete question
// @Tags questions
// @Accept json
// @Param question body DeleteQuestionRequest true "Question id"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/questions [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	var req DeleteQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.ID == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Question ID is required"})
		return
	}
	h.deleteQuestion(c, req.ID)
}

// DeleteQuestionByID is the path form of DeleteQuestion
// @Router /admin/questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestionByID(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	h.deleteQuestion(c, id)
}

func (h *QuestionHandler) deleteQuestion(c *gin.Context, id uint) {
	h.LogRequest(c, "Deleting question", "question_id", id)

	if err := h.questionService.Delete(c.Request.Context(), id, currentActor(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, nil)
}
