package handler

import (
	"net/http"
	"strconv"

	"mockmate/backend/internal/database"
	"mockmate/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type QuestionInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"required"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty" binding:"required,oneof=easy medium hard"`
}

type QuestionResponse struct {
	ID         uint   `json:"id"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Approved   bool   `json:"approved"`
	Active     bool   `json:"active"`
}

func newQuestionResponse(q models.Question) QuestionResponse {
	return QuestionResponse{
		ID:         q.ID,
		Title:      q.Title,
		Type:       q.Type,
		Category:   q.Category,
		Difficulty: q.Difficulty,
		Approved:   q.Approved,
		Active:     q.Active,
	}
}

// endregion

// CreateQuestion godoc
// @Summary      Create a question (Admin only)
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body QuestionInput true "Question info"
// @Success      201 {object} QuestionResponse
// @Failure      400 {object} ErrorResponse
// @Router       /admin/questions [post]
func CreateQuestion(c *gin.Context) {
	var input QuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question := models.Question{
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Category:    input.Category,
		Difficulty:  input.Difficulty,
		Active:      true,
	}
	if err := database.DB.Create(&question).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create question"})
		return
	}

	c.JSON(http.StatusCreated, newQuestionResponse(question))
}

// GetQuestions godoc
// @Summary      List questions (Admin only)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        type  query string false "Filter by interview type"
// @Param        page  query int    false "Page number" default(1)
// @Param        limit query int    false "Items per page" default(10)
// @Success      200 {object} PaginatedResponse[QuestionResponse]
// @Router       /admin/questions [get]
func GetQuestions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	query := database.DB.Model(&models.Question{})
	if t := c.Query("type"); t != "" {
		query = query.Where("type = ?", t)
	}

	result, err := Paginate[models.Question](query, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list questions"})
		return
	}

	responses := make([]QuestionResponse, 0, len(result.Data))
	for _, q := range result.Data {
		responses = append(responses, newQuestionResponse(q))
	}

	c.JSON(http.StatusOK, NewPaginatedResponse(responses, result.Meta.TotalItems, page, limit))
}

// ApproveQuestion godoc
// @Summary      Approve a question for assignment (Admin only)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Question ID"
// @Success      200 {object} QuestionResponse
// @Failure      404 {object} ErrorResponse "Question not found"
// @Router       /admin/questions/{id}/approve [post]
func ApproveQuestion(c *gin.Context) {
	questionID, _ := strconv.Atoi(c.Param("id"))

	var question models.Question
	if err := database.DB.First(&question, questionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	if err := database.DB.Model(&question).Update("approved", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve question"})
		return
	}
	question.Approved = true

	c.JSON(http.StatusOK, newQuestionResponse(question))
}
