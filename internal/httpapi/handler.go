// Package httpapi exposes the attendance service over JSON/HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendvisor/internal/attendance"
	"attendvisor/internal/auth"
	"attendvisor/internal/insight"
	"attendvisor/internal/metrics"
	"attendvisor/internal/report"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Handler serves the API.
type Handler struct {
	svc      *attendance.Service
	gate     *auth.Gate
	insights insight.Requester
	checks   map[string]HealthCheck
	log      *zap.Logger
	now      func() time.Time
}

// New creates a handler. checks may be nil.
func New(svc *attendance.Service, gate *auth.Gate, insights insight.Requester, checks map[string]HealthCheck, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, gate: gate, insights: insights, checks: checks, log: log, now: time.Now}
}

// WithClock overrides the time source for default dates and trends.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/logout", h.Logout)

	v1 := r.Group("/v1", auth.RequireSession(h.gate))
	v1.GET("/me", h.Me)
	v1.GET("/classes", h.ListClasses)
	v1.GET("/classes/:id/students", h.ListStudents)
	v1.GET("/classes/:id/sheet", h.Sheet)
	v1.POST("/classes/:id/attendance", h.RecordAttendance)
	v1.POST("/classes/:id/insights", h.Insights)
	v1.GET("/attendance", h.ListAttendance)
	v1.GET("/dashboard", h.Dashboard)
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// ---------- Session ----------

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.gate.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		h.log.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) Logout(c *gin.Context) {
	if token := auth.BearerToken(c); token != "" {
		if err := h.gate.Logout(c.Request.Context(), token); err != nil {
			h.log.Warn("logout failed", zap.Error(err))
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	u, _ := auth.UserFrom(c)
	c.JSON(http.StatusOK, u)
}

// ---------- Classes ----------

func (h *Handler) ListClasses(c *gin.Context) {
	u, _ := auth.UserFrom(c)
	c.JSON(http.StatusOK, gin.H{"classes": h.svc.Classes(u.ID)})
}

func (h *Handler) ListStudents(c *gin.Context) {
	u, _ := auth.UserFrom(c)
	students, err := h.svc.Students(u.ID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// ---------- Recording ----------

func (h *Handler) Sheet(c *gin.Context) {
	u, _ := auth.UserFrom(c)
	date := c.DefaultQuery("date", attendance.FormatDate(h.now()))
	rows, err := h.svc.Sheet(c.Request.Context(), u.ID, c.Param("id"), date)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "rows": rows})
}

type recordRequest struct {
	Date  string            `json:"date" binding:"required"`
	Marks []attendance.Mark `json:"marks" binding:"dive"`
}

func (h *Handler) RecordAttendance(c *gin.Context) {
	u, _ := auth.UserFrom(c)
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Record(c.Request.Context(), u.ID, attendance.RecordRequest{
		ClassID: c.Param("id"),
		Date:    req.Date,
		Marks:   req.Marks,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListAttendance(c *gin.Context) {
	u, _ := auth.UserFrom(c)
	f := attendance.Filter{ClassID: c.Query("class_id"), From: c.Query("from"), To: c.Query("to")}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := attendance.ParseDate(d); err != nil {
			h.writeError(c, err)
			return
		}
	}
	entries, err := h.svc.List(c.Request.Context(), u.ID, f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ---------- Dashboard ----------

func (h *Handler) Dashboard(c *gin.Context) {
	u, _ := auth.UserFrom(c)
	classes := h.svc.Classes(u.ID)
	var students []attendance.Student
	for _, cls := range classes {
		roster, _ := h.svc.Students(u.ID, cls.ID)
		students = append(students, roster...)
	}
	entries, err := h.svc.List(c.Request.Context(), u.ID, attendance.Filter{})
	if err != nil {
		h.writeError(c, err)
		return
	}
	now := h.now()
	out := report.Dashboard{Overview: report.Summarize(classes, students, entries, now)}

	classID := c.Query("class_id")
	if classID == "" && len(classes) > 0 {
		classID = classes[0].ID
	}
	if classID != "" {
		cls, err := h.svc.Class(u.ID, classID)
		if err != nil {
			h.writeError(c, err)
			return
		}
		roster, _ := h.svc.Students(u.ID, cls.ID)
		breakdown := report.ClassReport(cls, roster, entries, report.DefaultAbsenteeLimit)
		out.Class = &breakdown
	}
	c.JSON(http.StatusOK, out)
}

// ---------- Insights ----------

func (h *Handler) Insights(c *gin.Context) {
	u, _ := auth.UserFrom(c)
	cls, err := h.svc.Class(u.ID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	history, err := h.svc.History(c.Request.Context(), u.ID, cls.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := insight.CheckHistory(history); err != nil {
		metrics.InsightRequests.WithLabelValues("insufficient").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Not enough historical data for this class to generate insights. Please record more attendance.",
		})
		return
	}
	res, err := h.insights.Request(c.Request.Context(), history, u.Name, cls.Name)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate insights. Please try again."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"class": cls, "improved": res.Improved, "narrative": res.Narrative})
}

// writeError maps domain errors to status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrClassNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrInvalidDate),
		errors.Is(err, attendance.ErrFutureDate),
		errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, attendance.ErrUnknownStudent),
		errors.Is(err, attendance.ErrNoStudents):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
