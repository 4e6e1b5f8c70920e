package sandbox

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/netvigil/ispadm/internal/domain"
)

type cdnRulePayload struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Port      int    `json:"port"`
	Dscp      int    `json:"dscp"`
	RateKbps  int64  `json:"rate_kbps"`
	CeilKbps  int64  `json:"ceil_kbps"`
	IsRate    bool   `json:"is_rate"`
	Status    string `json:"status"`
	Remark    string `json:"remark"`
}

func (p cdnRulePayload) validate() (code, message string) {
	switch p.Direction {
	case domain.CdnDirectionPort:
		if p.Port <= 0 || p.Port > 65535 {
			return "VALIDATION", "port must be 1-65535 for a port rule"
		}
		if p.Dscp != 0 {
			return "VALIDATION", "dscp must not be set on a port rule"
		}
	case domain.CdnDirectionDscp:
		if p.Dscp < 0 || p.Dscp > 63 {
			return "VALIDATION", "dscp must be 0-63 for a dscp rule"
		}
		if p.Port != 0 {
			return "VALIDATION", "port must not be set on a dscp rule"
		}
	default:
		return "VALIDATION", "direction must be port or dscp"
	}
	if p.RateKbps <= 0 {
		return "VALIDATION", "rate_kbps must be positive"
	}
	if p.CeilKbps != 0 && p.CeilKbps < p.RateKbps {
		return "VALIDATION", "ceil_kbps must be zero or at least rate_kbps"
	}
	return "", ""
}

func (s *Server) listCdnRules(c echo.Context) error {
	var total int64
	s.db.Model(&domain.CdnRule{}).Count(&total)
	var rules []domain.CdnRule
	if err := s.db.Order("id ASC").Find(&rules).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query CDN rules")
	}
	return paged(c, rules, total)
}

func (s *Server) getCdnRule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid rule ID")
	}
	var rule domain.CdnRule
	if err := s.db.First(&rule, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "CDN rule not found")
	}
	return ok(c, "", rule)
}

func (s *Server) createCdnRule(c echo.Context) error {
	var payload cdnRulePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters")
	}
	if payload.Name == "" {
		return fail(c, http.StatusBadRequest, "VALIDATION", "name is required")
	}
	if code, msg := payload.validate(); code != "" {
		return fail(c, http.StatusBadRequest, code, msg)
	}
	var count int64
	s.db.Model(&domain.CdnRule{}).Where("name = ?", payload.Name).Count(&count)
	if count > 0 {
		return fail(c, http.StatusConflict, "NAME_EXISTS", "rule name already exists")
	}

	rule := domain.CdnRule{
		ID:        s.nextID(),
		Name:      payload.Name,
		Direction: payload.Direction,
		Port:      payload.Port,
		Dscp:      payload.Dscp,
		RateKbps:  payload.RateKbps,
		CeilKbps:  payload.CeilKbps,
		IsRate:    payload.IsRate,
		Status:    payload.Status,
		Remark:    payload.Remark,
	}
	if rule.Status == "" {
		rule.Status = "enabled"
	}
	if err := s.db.Create(&rule).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create CDN rule")
	}
	return ok(c, "CDN rule created", rule)
}

func (s *Server) updateCdnRule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid rule ID")
	}
	var rule domain.CdnRule
	if err := s.db.First(&rule, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "CDN rule not found")
	}

	var payload cdnRulePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters")
	}
	if payload.Direction == "" {
		payload.Direction = rule.Direction
	}
	if code, msg := payload.validate(); code != "" {
		return fail(c, http.StatusBadRequest, code, msg)
	}

	updates := map[string]interface{}{
		"direction": payload.Direction,
		"port":      payload.Port,
		"dscp":      payload.Dscp,
		"rate_kbps": payload.RateKbps,
		"ceil_kbps": payload.CeilKbps,
		"is_rate":   payload.IsRate,
		"remark":    payload.Remark,
	}
	if payload.Name != "" {
		updates["name"] = payload.Name
	}
	if payload.Status != "" {
		updates["status"] = payload.Status
	}
	if err := s.db.Model(&rule).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update CDN rule")
	}
	s.db.First(&rule, id)
	return ok(c, "CDN rule updated", rule)
}

func (s *Server) deleteCdnRule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid rule ID")
	}
	var rule domain.CdnRule
	if err := s.db.First(&rule, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "CDN rule not found")
	}
	if err := s.db.Delete(&rule).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete CDN rule")
	}
	return ok(c, "CDN rule deleted", map[string]interface{}{"id": rule.ID})
}
