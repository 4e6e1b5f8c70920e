package sandbox

func (s *Server) registerRoutes() {
	s.echo.GET("/dl/:filename", s.serveDownload)

	api := s.echo.Group("/api/v1")
	api.POST("/auth/login", s.login)
	api.POST("/auth/impersonate", s.impersonateExchange)

	secured := api.Group("", s.bearerAuth)
	secured.POST("/auth/impersonate/issue", s.impersonateIssue)

	secured.GET("/subscribers", s.listSubscribers)
	secured.GET("/subscribers/:id", s.getSubscriber)
	secured.POST("/subscribers", s.createSubscriber)
	secured.PUT("/subscribers/:id", s.updateSubscriber)
	secured.DELETE("/subscribers/:id", s.deleteSubscriber)
	secured.GET("/subscribers/:id/live", s.liveSample)
	secured.POST("/subscribers/bulk/preview", s.bulkPreview)
	secured.POST("/subscribers/bulk", s.bulkRun)

	secured.GET("/plans", s.listPlans)
	secured.GET("/plans/:id", s.getPlan)
	secured.POST("/plans", s.createPlan)
	secured.PUT("/plans/:id", s.updatePlan)
	secured.DELETE("/plans/:id", s.deletePlan)

	secured.GET("/cdn/rules", s.listCdnRules)
	secured.GET("/cdn/rules/:id", s.getCdnRule)
	secured.POST("/cdn/rules", s.createCdnRule)
	secured.PUT("/cdn/rules/:id", s.updateCdnRule)
	secured.DELETE("/cdn/rules/:id", s.deleteCdnRule)

	secured.GET("/nodes", s.listNodes)
	secured.GET("/ledger", s.listLedger)

	secured.GET("/backups", s.listBackups)
	secured.POST("/backups", s.createBackup)
	secured.DELETE("/backups/:filename", s.deleteBackup)
	secured.GET("/backups/:filename/download", s.backupDownloadURL)

	secured.GET("/schedules", s.listSchedules)
	secured.GET("/schedules/:id", s.getSchedule)
	secured.POST("/schedules", s.createSchedule)
	secured.PUT("/schedules/:id", s.updateSchedule)
	secured.DELETE("/schedules/:id", s.deleteSchedule)
	secured.POST("/schedules/:id/run", s.runSchedule)
	secured.GET("/backup-logs", s.listBackupLogs)
}
