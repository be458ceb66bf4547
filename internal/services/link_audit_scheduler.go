package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tripadmin/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// linkAuditTimeout upper bound of one audit run
const linkAuditTimeout = 2 * time.Minute

// LinkAuditScheduler periodically compares role trees with their link rows and logs drift.
type LinkAuditScheduler struct {
	roles   *RoleService
	spec    string
	cron    *cron.Cron
	entryID cron.EntryID
	mu      sync.Mutex
	running bool
}

// NewLinkAuditScheduler creates a scheduler for the cron spec. An empty spec disables it.
func NewLinkAuditScheduler(roles *RoleService, spec string) *LinkAuditScheduler {
	return &LinkAuditScheduler{
		roles: roles,
		spec:  spec,
		cron:  cron.New(),
	}
}

// Start registers the audit job and starts the cron loop
func (s *LinkAuditScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("link audit scheduler is already running")
	}
	if s.spec == "" {
		logger.Component("link-audit").Info("Link audit scheduler disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), linkAuditTimeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			logger.Component("link-audit").WithError(err).Error("Link audit failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid link audit cron %q: %w", s.spec, err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.running = true

	logger.Component("link-audit").WithFields(logrus.Fields{
		"cron":     s.spec,
		"next_run": s.cron.Entry(entryID).Next,
	}).Info("Link audit scheduler started")
	return nil
}

// Stop stops the cron loop and waits for a running audit to finish
func (s *LinkAuditScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.running = false
	logger.Component("link-audit").Info("Link audit scheduler stopped")
}

// IsRunning reports whether the cron loop is active
func (s *LinkAuditScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce audits every role now and logs each drift at warn level
func (s *LinkAuditScheduler) RunOnce(ctx context.Context) ([]LinkDrift, error) {
	start := time.Now()
	drifts, err := s.roles.AuditLinks(ctx)
	if err != nil {
		return nil, err
	}

	for _, d := range drifts {
		logger.Component("link-audit").WithFields(logrus.Fields{
			"role_id":   d.RoleID,
			"role_code": d.RoleCode,
			"missing":   d.Missing,
			"extra":     d.Extra,
		}).Warn("Role permission links out of sync with role tree")
	}
	logger.Component("link-audit").WithFields(logrus.Fields{
		"drifted":  len(drifts),
		"duration": time.Since(start).String(),
	}).Info("Link audit completed")
	return drifts, nil
}
