package sandbox

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/netvigil/ispadm/internal/domain"
)

// subscriberPayload mirrors the console form payload. IDs arrive as
// decimal strings per the wire contract.
type subscriberPayload struct {
	Username   string `json:"username"`
	Realname   string `json:"realname"`
	PlanID     int64  `json:"plan_id,string"`
	NodeID     int64  `json:"node_id,string"`
	IPAddr     string `json:"ip_addr"`
	MacAddr    string `json:"mac_addr"`
	ExpireAt   string `json:"expire_at"`
	QuotaBytes int64  `json:"quota_bytes"`
	Status     string `json:"status"`
	Remark     string `json:"remark"`
}

func (s *Server) listSubscribers(c echo.Context) error {
	query := s.db.Model(&domain.Subscriber{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		query = query.Where("LOWER(username) LIKE ? OR LOWER(realname) LIKE ?",
			"%"+strings.ToLower(q)+"%", "%"+strings.ToLower(q)+"%")
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var subscribers []domain.Subscriber
	if err := query.Order("id ASC").Find(&subscribers).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query subscribers")
	}
	return paged(c, subscribers, total)
}

func (s *Server) getSubscriber(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid subscriber ID")
	}
	var sub domain.Subscriber
	if err := s.db.First(&sub, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Subscriber not found")
	}
	return ok(c, "", sub)
}

func (s *Server) createSubscriber(c echo.Context) error {
	var payload subscriberPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters")
	}
	if payload.Username == "" {
		return fail(c, http.StatusBadRequest, "VALIDATION", "username is required")
	}
	if payload.PlanID == 0 {
		return fail(c, http.StatusBadRequest, "VALIDATION", "plan is required")
	}

	var count int64
	s.db.Model(&domain.Subscriber{}).Where("username = ?", payload.Username).Count(&count)
	if count > 0 {
		return fail(c, http.StatusConflict, "NAME_EXISTS", "username already exists")
	}

	sub := domain.Subscriber{
		ID:         s.nextID(),
		Username:   payload.Username,
		Realname:   payload.Realname,
		PlanID:     payload.PlanID,
		NodeID:     payload.NodeID,
		IPAddr:     payload.IPAddr,
		MacAddr:    payload.MacAddr,
		QuotaBytes: payload.QuotaBytes,
		Status:     payload.Status,
		Remark:     payload.Remark,
	}
	if sub.Status == "" {
		sub.Status = "enabled"
	}
	if payload.ExpireAt != "" {
		t, err := time.Parse(time.RFC3339, payload.ExpireAt)
		if err != nil {
			return fail(c, http.StatusBadRequest, "VALIDATION", "invalid expire_at")
		}
		sub.ExpireAt = t
	}
	if plan := s.planByID(sub.PlanID); plan != nil {
		sub.UpRateKbps = plan.UpRateKbps
		sub.DownRateKbps = plan.DownRateKbps
	}

	if err := s.db.Create(&sub).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create subscriber")
	}
	return ok(c, "subscriber created", sub)
}

func (s *Server) updateSubscriber(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid subscriber ID")
	}
	var sub domain.Subscriber
	if err := s.db.First(&sub, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Subscriber not found")
	}

	var payload subscriberPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters")
	}

	updates := map[string]interface{}{
		"realname":    payload.Realname,
		"ip_addr":     payload.IPAddr,
		"mac_addr":    payload.MacAddr,
		"quota_bytes": payload.QuotaBytes,
		"remark":      payload.Remark,
	}
	if payload.Username != "" {
		updates["username"] = payload.Username
	}
	if payload.PlanID != 0 {
		updates["plan_id"] = payload.PlanID
	}
	if payload.NodeID != 0 {
		updates["node_id"] = payload.NodeID
	}
	if payload.Status != "" {
		updates["status"] = payload.Status
	}
	if payload.ExpireAt != "" {
		t, err := time.Parse(time.RFC3339, payload.ExpireAt)
		if err != nil {
			return fail(c, http.StatusBadRequest, "VALIDATION", "invalid expire_at")
		}
		updates["expire_at"] = t
	}

	if err := s.db.Model(&sub).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update subscriber")
	}
	s.db.First(&sub, id)
	return ok(c, "subscriber updated", sub)
}

func (s *Server) deleteSubscriber(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid subscriber ID")
	}
	var sub domain.Subscriber
	if err := s.db.First(&sub, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Subscriber not found")
	}
	if err := s.db.Delete(&sub).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete subscriber")
	}
	return ok(c, "subscriber deleted", map[string]interface{}{"id": sub.ID})
}

func (s *Server) planByID(id int64) *domain.ServicePlan {
	var plan domain.ServicePlan
	if err := s.db.First(&plan, id).Error; err != nil {
		return nil
	}
	return &plan
}

func (s *Server) listNodes(c echo.Context) error {
	var nodes []domain.NasNode
	if err := s.db.Order("id ASC").Find(&nodes).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query nodes")
	}
	return paged(c, nodes, int64(len(nodes)))
}

func (s *Server) listLedger(c echo.Context) error {
	query := s.db.Model(&domain.LedgerEntry{})
	if username := strings.TrimSpace(c.QueryParam("username")); username != "" {
		query = query.Where("username = ?", username)
	}
	var total int64
	query.Count(&total)
	var entries []domain.LedgerEntry
	if err := query.Order("id DESC").Find(&entries).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query ledger")
	}
	return paged(c, entries, total)
}
