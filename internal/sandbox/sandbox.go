// Package sandbox is an embedded development backend speaking the same
// HTTP contract as the production subscriber-management API. The e2e
// tests mount it with httptest; `ispadm sandbox` runs it standalone so
// the console can be exercised without a real deployment. It simulates
// the contract only and is not a reimplementation of the backend.
package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/netvigil/ispadm/config"
	"github.com/netvigil/ispadm/internal/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server is the sandbox backend.
type Server struct {
	cfg   config.SandboxConfig
	db    *gorm.DB
	echo  *echo.Echo
	sched *cron.Cron
	node  *snowflake.Node

	mu       sync.Mutex
	onetime  map[string]string  // one-time impersonation token -> operator
	counters map[int64]*liveState
}

type liveState struct {
	cdnBytes map[int64]float64 // cumulative counter per rule
	seq      int64
}

// NewServer opens the sandbox database, migrates the schema, seeds
// baseline data, and registers the HTTP routes.
func NewServer(cfg config.SandboxConfig) (*Server, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DBFile), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sandbox db %s: %w", cfg.DBFile, err)
	}
	if err := db.AutoMigrate(domain.Tables...); err != nil {
		return nil, fmt.Errorf("migrate sandbox db: %w", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		db:       db,
		node:     node,
		onetime:  make(map[string]string),
		counters: make(map[int64]*liveState),
	}
	s.seed()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s.echo = e
	s.registerRoutes()

	s.sched = cron.New()
	if _, err := s.sched.AddFunc("@every 30s", s.runDueSchedules); err != nil {
		zap.S().Errorf("sandbox schedule job error %s", err.Error())
	}

	return s, nil
}

// Handler exposes the echo instance as an http.Handler for tests.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}

// Start runs the cron loop and blocks serving HTTP on the configured
// listen address.
func (s *Server) Start() error {
	s.sched.Start()
	zap.L().Info("sandbox backend listening", zap.String("addr", s.cfg.Listen))
	return s.echo.Start(s.cfg.Listen)
}

// Shutdown stops the scheduler and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sched.Stop()
	return s.echo.Shutdown(ctx)
}

func (s *Server) nextID() int64 {
	return s.node.Generate().Int64()
}

// seed creates the default operator and a small dataset on first run.
func (s *Server) seed() {
	var count int64
	s.db.Model(&domain.SysOpr{}).Count(&count)
	if count > 0 {
		return
	}

	s.db.Create(&domain.SysOpr{
		ID: s.nextID(), Username: "admin", Password: "admin",
		Realname: "Administrator", Level: "super", Status: "enabled",
	})

	planID := s.nextID()
	s.db.Create(&domain.ServicePlan{
		ID: planID, Name: "Home 50M", UpRateKbps: 10240, DownRateKbps: 51200,
		PcqMode: "pcq-both", DailyQuotaBytes: 0, Status: "enabled",
	})
	nodeID := s.nextID()
	s.db.Create(&domain.NasNode{
		ID: nodeID, Name: "pop-central", Ipaddr: "10.0.0.1", Online: true, Latency: 3,
	})
	s.db.Create(&domain.Subscriber{
		ID: s.nextID(), Username: "demo001", Realname: "Demo Subscriber",
		PlanID: planID, NodeID: nodeID, Status: "enabled", Online: true,
		UpRateKbps: 10240, DownRateKbps: 51200,
		ExpireAt: time.Now().AddDate(0, 1, 0),
	})
	s.db.Create(&domain.CdnRule{
		ID: s.nextID(), Name: "youtube-cache", Direction: domain.CdnDirectionPort,
		Port: 8080, RateKbps: 20480, IsRate: false, Status: "enabled",
	})
	s.db.Create(&domain.CdnRule{
		ID: s.nextID(), Name: "game-dscp", Direction: domain.CdnDirectionDscp,
		Dscp: 46, RateKbps: 5120, IsRate: true, Status: "enabled",
	})
}
