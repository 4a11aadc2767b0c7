package api

import (
	"errors"
	"net/http"
	"time"

	"cherries_service/internal/model"
	"cherries_service/internal/service"
	"cherries_service/pkg/auth"
	"cherries_service/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type questRoutes struct {
	qs service.QuestServiceI
	a  *auth.JWTAuth
}

func NewQuestRoutes(handler *gin.RouterGroup, qs service.QuestServiceI, a *auth.JWTAuth, joinLimiter gin.HandlerFunc) {
	r := &questRoutes{qs: qs, a: a}
	h := handler.Group("/quests")
	h.Use(a.AuthMiddleware())
	{
		h.POST("", r.CreateQuest)
		h.GET("", r.GetUserQuests)
		h.GET("/:quest_id", r.GetQuest)
		h.GET("/:quest_id/participants", r.GetParticipants)
		h.POST("/join", joinLimiter, r.JoinQuest)
	}
}

type DailyTaskRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	Points      int     `json:"points"`
}

type CreateQuestRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description *string            `json:"description"`
	StartDate   string             `json:"start_date" binding:"required"`
	EndDate     string             `json:"end_date" binding:"required"`
	DailyTasks  []DailyTaskRequest `json:"daily_tasks"`
}

type JoinQuestRequest struct {
	ShareCode string `json:"share_code" binding:"required"`
}

type DailyTaskResponse struct {
	ID          uuid.UUID `json:"id"`
	QuestID     uuid.UUID `json:"quest_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Points      int       `json:"points"`
	CreatedAt   time.Time `json:"created_at"`
}

type QuestResponse struct {
	ID                 uuid.UUID           `json:"id"`
	Name               string              `json:"name"`
	Description        *string             `json:"description,omitempty"`
	StartDate          string              `json:"start_date"`
	EndDate            string              `json:"end_date"`
	CreatorID          uuid.UUID           `json:"creator_id"`
	ShareCode          string              `json:"share_code"`
	ShareCodeExpiresAt time.Time           `json:"share_code_expires_at"`
	CreatedAt          time.Time           `json:"created_at"`
	DailyTasks         []DailyTaskResponse `json:"daily_tasks"`
}

type ParticipantResponse struct {
	QuestID     uuid.UUID `json:"quest_id"`
	UserID      uuid.UUID `json:"user_id"`
	JoinedAt    time.Time `json:"joined_at"`
	TotalPoints int       `json:"total_points"`
}

func (r *questRoutes) CreateQuest(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}

	quest := &model.Quest{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   startDate,
		EndDate:     endDate,
	}

	tasks := make([]model.DailyTask, len(req.DailyTasks))
	for i, t := range req.DailyTasks {
		tasks[i] = model.DailyTask{
			Title:       t.Title,
			Description: t.Description,
			Points:      t.Points,
		}
	}

	created, err := r.qs.CreateQuest(c.Request.Context(), user.ID, quest, tasks)
	if err != nil {
		log.Error("failed to create quest", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create quest"})
		return
	}

	c.JSON(http.StatusCreated, questToResponse(created))
}

func (r *questRoutes) GetUserQuests(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	quests, err := r.qs.GetUserQuests(c.Request.Context(), user.ID)
	if err != nil {
		log.Error("failed to get user quests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get quests"})
		return
	}

	response := make([]QuestResponse, 0, len(quests))
	for _, q := range quests {
		response = append(response, questToResponse(q))
	}

	c.JSON(http.StatusOK, response)
}

func (r *questRoutes) GetQuest(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	questID, err := uuid.Parse(c.Param("quest_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quest_id"})
		return
	}

	quest, err := r.qs.GetQuest(c.Request.Context(), questID, user.ID)
	if err != nil {
		log.Error("failed to get quest", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this quest"})
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get quest"})
		}
		return
	}

	c.JSON(http.StatusOK, questToResponse(quest))
}

func (r *questRoutes) GetParticipants(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	questID, err := uuid.Parse(c.Param("quest_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quest_id"})
		return
	}

	participants, err := r.qs.GetParticipants(c.Request.Context(), questID, user.ID)
	if err != nil {
		log.Error("failed to get participants", zap.Error(err))
		if errors.Is(err, service.ErrNotParticipant) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this quest"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get participants"})
		return
	}

	response := make([]ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		response = append(response, participantToResponse(p))
	}

	c.JSON(http.StatusOK, response)
}

func (r *questRoutes) JoinQuest(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req JoinQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	participant, err := r.qs.JoinQuest(c.Request.Context(), user.ID, req.ShareCode)
	if err != nil {
		log.Error("failed to join quest", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid share code"})
		case errors.Is(err, service.ErrShareCodeExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "share code has expired"})
		case errors.Is(err, service.ErrAlreadyJoined):
			c.JSON(http.StatusBadRequest, gin.H{"error": "already a participant of this quest"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join quest"})
		}
		return
	}

	c.JSON(http.StatusOK, participantToResponse(participant))
}

func questToResponse(q *model.Quest) QuestResponse {
	tasks := make([]DailyTaskResponse, 0, len(q.DailyTasks))
	for _, t := range q.DailyTasks {
		tasks = append(tasks, DailyTaskResponse{
			ID:          t.ID,
			QuestID:     t.QuestID,
			Title:       t.Title,
			Description: t.Description,
			Points:      t.Points,
			CreatedAt:   t.CreatedAt,
		})
	}

	return QuestResponse{
		ID:                 q.ID,
		Name:               q.Name,
		Description:        q.Description,
		StartDate:          q.StartDate.Format(dateLayout),
		EndDate:            q.EndDate.Format(dateLayout),
		CreatorID:          q.CreatorID,
		ShareCode:          q.ShareCode,
		ShareCodeExpiresAt: q.ShareCodeExpiresAt,
		CreatedAt:          q.CreatedAt,
		DailyTasks:         tasks,
	}
}

func participantToResponse(p *model.Participant) ParticipantResponse {
	return ParticipantResponse{
		QuestID:     p.QuestID,
		UserID:      p.UserID,
		JoinedAt:    p.JoinedAt,
		TotalPoints: p.TotalPoints,
	}
}
