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

const monthLayout = "2006-01"

type checkInRoutes struct {
	cs service.CheckInServiceI
	a  *auth.JWTAuth
}

func NewCheckInRoutes(handler *gin.RouterGroup, cs service.CheckInServiceI, a *auth.JWTAuth) {
	r := &checkInRoutes{cs: cs, a: a}
	h := handler.Group("/checkins")
	h.Use(a.AuthMiddleware())
	{
		h.POST("", r.Increment)
		h.POST("/decrement", r.Decrement)
		h.GET("/quest/:quest_id", r.GetQuestCheckIns)
		h.GET("/stats/:quest_id", r.GetStats)
	}
}

type CheckInRequest struct {
	QuestID     uuid.UUID `json:"quest_id" binding:"required"`
	DailyTaskID uuid.UUID `json:"daily_task_id" binding:"required"`
	CheckInDate string    `json:"check_in_date" binding:"required"`
	Notes       *string   `json:"notes"`
}

type CheckInResponse struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	QuestID     uuid.UUID  `json:"quest_id"`
	DailyTaskID uuid.UUID  `json:"daily_task_id"`
	CheckInDate string     `json:"check_in_date"`
	Count       int        `json:"count"`
	Notes       *string    `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

type DecrementResponse struct {
	Cleared bool             `json:"cleared"`
	CheckIn *CheckInResponse `json:"check_in,omitempty"`
}

type CheckInStatsResponse struct {
	QuestID       uuid.UUID `json:"quest_id"`
	UserID        uuid.UUID `json:"user_id"`
	TotalCheckIns int       `json:"total_check_ins"`
	TotalPoints   int       `json:"total_points"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
}

func (r *checkInRoutes) Increment(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	date, err := time.Parse(dateLayout, req.CheckInDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid check_in_date"})
		return
	}

	checkin, err := r.cs.Increment(c.Request.Context(), req.QuestID, user.ID, req.DailyTaskID, date, req.Notes)
	if err != nil {
		log.Error("failed to increment check-in", zap.Error(err))
		r.writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkInToResponse(checkin))
}

func (r *checkInRoutes) Decrement(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	date, err := time.Parse(dateLayout, req.CheckInDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid check_in_date"})
		return
	}

	checkin, cleared, err := r.cs.Decrement(c.Request.Context(), req.QuestID, user.ID, req.DailyTaskID, date)
	if err != nil {
		log.Error("failed to decrement check-in", zap.Error(err))
		r.writeLedgerError(c, err)
		return
	}

	response := DecrementResponse{Cleared: cleared}
	if checkin != nil {
		resp := checkInToResponse(checkin)
		response.CheckIn = &resp
	}

	c.JSON(http.StatusOK, response)
}

func (r *checkInRoutes) GetQuestCheckIns(c *gin.Context) {
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

	var month *time.Time
	if m := c.Query("month"); m != "" {
		parsed, err := time.Parse(monthLayout, m)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month, expected YYYY-MM"})
			return
		}
		month = &parsed
	}

	checkins, err := r.cs.ListCheckIns(c.Request.Context(), questID, user.ID, month)
	if err != nil {
		log.Error("failed to list check-ins", zap.Error(err))
		r.writeLedgerError(c, err)
		return
	}

	response := make([]CheckInResponse, 0, len(checkins))
	for i := range checkins {
		response = append(response, checkInToResponse(&checkins[i]))
	}

	c.JSON(http.StatusOK, response)
}

func (r *checkInRoutes) GetStats(c *gin.Context) {
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

	stats, err := r.cs.Stats(c.Request.Context(), questID, user.ID)
	if err != nil {
		log.Error("failed to get check-in stats", zap.Error(err))
		r.writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, CheckInStatsResponse{
		QuestID:       stats.QuestID,
		UserID:        stats.UserID,
		TotalCheckIns: stats.TotalCheckIns,
		TotalPoints:   stats.TotalPoints,
		CurrentStreak: stats.CurrentStreak,
		LongestStreak: stats.LongestStreak,
	})
}

func (r *checkInRoutes) writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this quest"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func checkInToResponse(checkin *model.CheckIn) CheckInResponse {
	return CheckInResponse{
		ID:          checkin.ID,
		UserID:      checkin.UserID,
		QuestID:     checkin.QuestID,
		DailyTaskID: checkin.DailyTaskID,
		CheckInDate: checkin.CheckInDate.Format(dateLayout),
		Count:       checkin.Count,
		Notes:       checkin.Notes,
		CreatedAt:   checkin.CreatedAt,
		UpdatedAt:   checkin.UpdatedAt,
	}
}
