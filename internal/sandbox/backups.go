package sandbox

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/netvigil/ispadm/internal/domain"
)

func (s *Server) listBackups(c echo.Context) error {
	var total int64
	s.db.Model(&domain.Backup{}).Count(&total)
	var backups []domain.Backup
	if err := s.db.Order("created_at DESC").Find(&backups).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query backups")
	}
	return paged(c, backups, total)
}

func (s *Server) createBackup(c echo.Context) error {
	var payload struct {
		Kind    string `json:"kind"`
		Storage string `json:"storage_type"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters")
	}
	if payload.Kind == "" {
		payload.Kind = "full"
	}
	if payload.Storage == "" {
		payload.Storage = "local"
	}

	backup := s.writeBackup(payload.Kind, payload.Storage)
	return ok(c, "backup created", backup)
}

func (s *Server) deleteBackup(c echo.Context) error {
	filename := c.Param("filename")
	var backup domain.Backup
	if err := s.db.Where("filename = ?", filename).First(&backup).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Backup not found")
	}
	if err := s.db.Delete(&backup).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete backup")
	}
	return ok(c, "backup deleted", map[string]string{"filename": filename})
}

// backupDownloadURL signs a short-lived link so the artifact can be
// fetched without a session header.
func (s *Server) backupDownloadURL(c echo.Context) error {
	filename := c.Param("filename")
	var backup domain.Backup
	if err := s.db.Where("filename = ?", filename).First(&backup).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Backup not found")
	}

	claims := jwt.MapClaims{
		"file": filename,
		"exp":  time.Now().Add(5 * time.Minute).Unix(),
	}
	sig, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SIGN_FAILED", "failed to sign download link")
	}
	return ok(c, "", map[string]string{
		"url": fmt.Sprintf("/dl/%s?sig=%s", filename, sig),
	})
}

func (s *Server) serveDownload(c echo.Context) error {
	filename := c.Param("filename")
	claims, err := s.parseToken(c.QueryParam("sig"))
	if err != nil {
		return fail(c, http.StatusForbidden, "BAD_SIGNATURE", "download link invalid or expired")
	}
	if file, _ := claims["file"].(string); file != filename {
		return fail(c, http.StatusForbidden, "BAD_SIGNATURE", "download link does not match file")
	}
	var backup domain.Backup
	if err := s.db.Where("filename = ?", filename).First(&backup).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Backup not found")
	}
	// The sandbox holds no real artifacts; serve a placeholder dump.
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "application/sql",
		[]byte(fmt.Sprintf("-- sandbox backup %s (%d bytes in production)\n", filename, backup.SizeBytes)))
}

type schedulePayload struct {
	Name        string `json:"name"`
	Frequency   string `json:"frequency"`
	Time        string `json:"time"`
	Retention   int    `json:"retention"`
	StorageType string `json:"storage_type"`
	Status      string `json:"status"`
}

func (p schedulePayload) validate() (code, message string) {
	switch p.Frequency {
	case "daily", "weekly", "monthly":
	default:
		return "VALIDATION", "frequency must be daily, weekly or monthly"
	}
	if _, err := time.Parse("15:04", p.Time); err != nil {
		return "VALIDATION", "time must be a 24h clock value like 02:00"
	}
	if p.Retention < 1 {
		return "VALIDATION", "retention must be at least 1"
	}
	switch p.StorageType {
	case "local", "cloud":
	default:
		return "VALIDATION", "storage_type must be local or cloud"
	}
	return "", ""
}

func (s *Server) listSchedules(c echo.Context) error {
	var total int64
	s.db.Model(&domain.BackupSchedule{}).Count(&total)
	var schedules []domain.BackupSchedule
	if err := s.db.Order("id ASC").Find(&schedules).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query schedules")
	}
	return paged(c, schedules, total)
}

func (s *Server) getSchedule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid schedule ID")
	}
	var schedule domain.BackupSchedule
	if err := s.db.First(&schedule, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Schedule not found")
	}
	return ok(c, "", schedule)
}

func (s *Server) createSchedule(c echo.Context) error {
	var payload schedulePayload
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
	s.db.Model(&domain.BackupSchedule{}).Where("name = ?", payload.Name).Count(&count)
	if count > 0 {
		return fail(c, http.StatusConflict, "NAME_EXISTS", "schedule name already exists")
	}

	schedule := domain.BackupSchedule{
		ID:          s.nextID(),
		Name:        payload.Name,
		Frequency:   payload.Frequency,
		Time:        payload.Time,
		Retention:   payload.Retention,
		StorageType: payload.StorageType,
		Status:      payload.Status,
	}
	if schedule.Status == "" {
		schedule.Status = "enabled"
	}
	schedule.NextRunAt = nextRun(schedule.Frequency, schedule.Time, time.Now())
	if err := s.db.Create(&schedule).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create schedule")
	}
	return ok(c, "schedule created", schedule)
}

func (s *Server) updateSchedule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid schedule ID")
	}
	var schedule domain.BackupSchedule
	if err := s.db.First(&schedule, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Schedule not found")
	}

	var payload schedulePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request parameters")
	}
	if payload.Frequency == "" {
		payload.Frequency = schedule.Frequency
	}
	if payload.Time == "" {
		payload.Time = schedule.Time
	}
	if payload.Retention == 0 {
		payload.Retention = schedule.Retention
	}
	if payload.StorageType == "" {
		payload.StorageType = schedule.StorageType
	}
	if code, msg := payload.validate(); code != "" {
		return fail(c, http.StatusBadRequest, code, msg)
	}

	updates := map[string]interface{}{
		"frequency":    payload.Frequency,
		"time":         payload.Time,
		"retention":    payload.Retention,
		"storage_type": payload.StorageType,
		"next_run_at":  nextRun(payload.Frequency, payload.Time, time.Now()),
	}
	if payload.Name != "" {
		updates["name"] = payload.Name
	}
	if payload.Status != "" {
		updates["status"] = payload.Status
	}
	if err := s.db.Model(&schedule).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update schedule")
	}
	s.db.First(&schedule, id)
	return ok(c, "schedule updated", schedule)
}

func (s *Server) deleteSchedule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid schedule ID")
	}
	var schedule domain.BackupSchedule
	if err := s.db.First(&schedule, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Schedule not found")
	}
	if err := s.db.Delete(&schedule).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete schedule")
	}
	return ok(c, "schedule deleted", map[string]interface{}{"id": schedule.ID})
}

func (s *Server) runSchedule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid schedule ID")
	}
	var schedule domain.BackupSchedule
	if err := s.db.First(&schedule, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Schedule not found")
	}
	backup := s.executeSchedule(&schedule)
	return ok(c, "schedule executed", backup)
}

func (s *Server) listBackupLogs(c echo.Context) error {
	query := s.db.Model(&domain.BackupLog{})
	if sid := c.QueryParam("schedule_id"); sid != "" {
		query = query.Where("schedule_id = ?", sid)
	}
	var total int64
	query.Count(&total)
	var logs []domain.BackupLog
	if err := query.Order("id DESC").Find(&logs).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query backup logs")
	}
	return paged(c, logs, total)
}

// runDueSchedules is the cron entry; it fires every enabled schedule
// whose next run time has passed.
func (s *Server) runDueSchedules() {
	var due []domain.BackupSchedule
	s.db.Where("status = ? AND next_run_at <= ?", "enabled", time.Now()).Find(&due)
	for i := range due {
		s.executeSchedule(&due[i])
	}
}

// executeSchedule performs one run: write the backup row, prune past the
// retention count, record a log entry, advance the run timestamps.
func (s *Server) executeSchedule(schedule *domain.BackupSchedule) domain.Backup {
	backup := s.writeBackup("full", schedule.StorageType)
	s.pruneBackups(schedule.StorageType, schedule.Retention)

	s.db.Create(&domain.BackupLog{
		ID:         s.nextID(),
		ScheduleID: schedule.ID,
		Filename:   backup.Filename,
		Result:     "success",
		Message:    "backup completed",
	})

	now := time.Now()
	s.db.Model(schedule).Updates(map[string]interface{}{
		"last_run_at":  now,
		"next_run_at":  nextRun(schedule.Frequency, schedule.Time, now),
		"last_result":  "success",
		"last_message": "backup completed",
	})
	return backup
}

func (s *Server) writeBackup(kind, storage string) domain.Backup {
	backup := domain.Backup{
		Filename:  fmt.Sprintf("backup-%s.sql", time.Now().Format("20060102-150405")),
		SizeBytes: 1 << 20,
		Kind:      kind,
		Storage:   storage,
	}
	s.db.Create(&backup)
	return backup
}

func (s *Server) pruneBackups(storage string, retention int) {
	var backups []domain.Backup
	s.db.Where("storage = ?", storage).Order("created_at DESC").Find(&backups)
	for i := retention; i < len(backups); i++ {
		s.db.Delete(&backups[i])
	}
}

// nextRun computes the next occurrence of a schedule's clock time after
// the reference instant.
func nextRun(frequency, clock string, after time.Time) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		t = time.Date(0, 1, 1, 2, 0, 0, 0, time.UTC)
	}
	next := time.Date(after.Year(), after.Month(), after.Day(),
		t.Hour(), t.Minute(), 0, 0, after.Location())
	for !next.After(after) {
		switch frequency {
		case "weekly":
			next = next.AddDate(0, 0, 7)
		case "monthly":
			next = next.AddDate(0, 1, 0)
		default:
			next = next.AddDate(0, 0, 1)
		}
	}
	return next
}
