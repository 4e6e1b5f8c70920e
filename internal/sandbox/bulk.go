package sandbox

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/netvigil/ispadm/internal/domain"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

type bulkFilter struct {
	Status         string `json:"status"`
	PlanID         int64  `json:"plan_id"`
	NodeID         int64  `json:"node_id"`
	ExpiringBefore string `json:"expiring_before"`
	UsernamePrefix string `json:"username_prefix"`
}

func (s *Server) filterQuery(f bulkFilter) (*gorm.DB, error) {
	query := s.db.Model(&domain.Subscriber{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.PlanID != 0 {
		query = query.Where("plan_id = ?", f.PlanID)
	}
	if f.NodeID != 0 {
		query = query.Where("node_id = ?", f.NodeID)
	}
	if f.ExpiringBefore != "" {
		t, err := time.Parse(time.RFC3339, f.ExpiringBefore)
		if err != nil {
			return nil, fmt.Errorf("invalid expiring_before")
		}
		query = query.Where("expire_at < ?", t)
	}
	if f.UsernamePrefix != "" {
		query = query.Where("username LIKE ?", f.UsernamePrefix+"%")
	}
	return query, nil
}

func (s *Server) bulkPreview(c echo.Context) error {
	var payload struct {
		Filter bulkFilter `json:"filter"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters")
	}
	query, err := s.filterQuery(payload.Filter)
	if err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION", err.Error())
	}

	var ids []int64
	if err := query.Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query subscribers")
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strconv.FormatInt(id, 10))
	}
	return ok(c, "", map[string]interface{}{
		"total": len(out),
		"ids":   out,
	})
}

func (s *Server) bulkRun(c echo.Context) error {
	var payload struct {
		Operation string                 `json:"operation"`
		Params    map[string]interface{} `json:"params"`
		IDs       []string               `json:"ids"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters")
	}
	if len(payload.IDs) == 0 {
		return fail(c, http.StatusBadRequest, "VALIDATION", "ids is required")
	}

	succeeded, failed := 0, 0
	errors := map[string]string{}
	for _, raw := range payload.IDs {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			failed++
			errors[raw] = "invalid id"
			continue
		}
		if err := s.applyBulkOp(id, payload.Operation, payload.Params); err != nil {
			failed++
			errors[raw] = err.Error()
			continue
		}
		succeeded++
	}

	filterJSON, _ := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(payload.Params)
	s.db.Create(&domain.BulkJob{
		ID:        s.nextID(),
		Operation: payload.Operation,
		Filter:    filterJSON,
		Total:     len(payload.IDs),
		Succeeded: succeeded,
		Failed:    failed,
	})

	return ok(c, "bulk operation finished", map[string]interface{}{
		"succeeded": succeeded,
		"failed":    failed,
		"errors":    errors,
	})
}

func (s *Server) applyBulkOp(id int64, op string, params map[string]interface{}) error {
	var sub domain.Subscriber
	if err := s.db.First(&sub, id).Error; err != nil {
		return fmt.Errorf("subscriber not found")
	}

	switch op {
	case "enable":
		return s.db.Model(&sub).Update("status", "enabled").Error
	case "disable":
		return s.db.Model(&sub).Update("status", "disabled").Error
	case "change_plan":
		planID := cast.ToInt64(params["plan_id"])
		if planID == 0 {
			return fmt.Errorf("plan_id is required")
		}
		plan := s.planByID(planID)
		if plan == nil {
			return fmt.Errorf("plan not found")
		}
		return s.db.Model(&sub).Updates(map[string]interface{}{
			"plan_id":        planID,
			"up_rate_kbps":   plan.UpRateKbps,
			"down_rate_kbps": plan.DownRateKbps,
		}).Error
	case "extend_expiry":
		days := cast.ToInt(params["days"])
		if days <= 0 {
			return fmt.Errorf("days must be positive")
		}
		base := sub.ExpireAt
		if base.Before(time.Now()) {
			base = time.Now()
		}
		return s.db.Model(&sub).Update("expire_at", base.AddDate(0, 0, days)).Error
	default:
		return fmt.Errorf("unknown operation %s", op)
	}
}
