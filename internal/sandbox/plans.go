package sandbox

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/netvigil/ispadm/internal/domain"
)

type planPayload struct {
	Name             string `json:"name"`
	UpRateKbps       int64  `json:"up_rate_kbps"`
	DownRateKbps     int64  `json:"down_rate_kbps"`
	PcqMode          string `json:"pcq_mode"`
	DailyQuotaBytes  int64  `json:"daily_quota"`
	TimeSpeedEnabled bool   `json:"time_speed_enabled"`
	DayRatio         int    `json:"day_ratio"`
	NightRatio       int    `json:"night_ratio"`
	NightStart       string `json:"night_start"`
	Status           string `json:"status"`
	Remark           string `json:"remark"`
}

func (s *Server) listPlans(c echo.Context) error {
	query := s.db.Model(&domain.ServicePlan{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	var total int64
	query.Count(&total)
	var plans []domain.ServicePlan
	if err := query.Order("id ASC").Find(&plans).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query plans")
	}
	return paged(c, plans, total)
}

func (s *Server) getPlan(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid plan ID")
	}
	var plan domain.ServicePlan
	if err := s.db.First(&plan, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Plan not found")
	}
	return ok(c, "", plan)
}

func (s *Server) createPlan(c echo.Context) error {
	var payload planPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters")
	}
	if payload.Name == "" {
		return fail(c, http.StatusBadRequest, "VALIDATION", "name is required")
	}
	var count int64
	s.db.Model(&domain.ServicePlan{}).Where("name = ?", payload.Name).Count(&count)
	if count > 0 {
		return fail(c, http.StatusConflict, "NAME_EXISTS", "plan name already exists")
	}

	plan := domain.ServicePlan{
		ID:               s.nextID(),
		Name:             payload.Name,
		UpRateKbps:       payload.UpRateKbps,
		DownRateKbps:     payload.DownRateKbps,
		PcqMode:          payload.PcqMode,
		DailyQuotaBytes:  payload.DailyQuotaBytes,
		TimeSpeedEnabled: payload.TimeSpeedEnabled,
		DayRatio:         payload.DayRatio,
		NightRatio:       payload.NightRatio,
		NightStart:       payload.NightStart,
		Status:           payload.Status,
		Remark:           payload.Remark,
	}
	if plan.Status == "" {
		plan.Status = "enabled"
	}
	if err := s.db.Create(&plan).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create plan")
	}
	return ok(c, "plan created", plan)
}

func (s *Server) updatePlan(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid plan ID")
	}
	var plan domain.ServicePlan
	if err := s.db.First(&plan, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Plan not found")
	}

	var payload planPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters")
	}

	updates := map[string]interface{}{
		"up_rate_kbps":       payload.UpRateKbps,
		"down_rate_kbps":     payload.DownRateKbps,
		"pcq_mode":           payload.PcqMode,
		"daily_quota_bytes":  payload.DailyQuotaBytes,
		"time_speed_enabled": payload.TimeSpeedEnabled,
		"day_ratio":          payload.DayRatio,
		"night_ratio":        payload.NightRatio,
		"night_start":        payload.NightStart,
		"remark":             payload.Remark,
	}
	if payload.Name != "" {
		updates["name"] = payload.Name
	}
	if payload.Status != "" {
		updates["status"] = payload.Status
	}
	if err := s.db.Model(&plan).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update plan")
	}
	s.db.First(&plan, id)
	return ok(c, "plan updated", plan)
}

func (s *Server) deletePlan(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid plan ID")
	}
	var inUse int64
	s.db.Model(&domain.Subscriber{}).Where("plan_id = ?", id).Count(&inUse)
	if inUse > 0 {
		return fail(c, http.StatusConflict, "PLAN_IN_USE", "plan is assigned to subscribers")
	}
	if err := s.db.Delete(&domain.ServicePlan{}, id).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete plan")
	}
	return ok(c, "plan deleted", map[string]interface{}{"id": id})
}
