package server

import (
	"time"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	"github.com/coachloop/backend/libs/cfg"
	"github.com/coachloop/backend/libs/clock"
	"github.com/coachloop/backend/libs/errors"
)

// CfgMaxSessionsPerMonth limits how many sessions an account may create per
// calendar month. Zero disables the limit.
const CfgMaxSessionsPerMonth = "transcription.max_sessions_per_month"

// QuotaDefs returns the config definitions consumed by the quota gate.
func QuotaDefs() []*cfg.ValueDef {
	return []*cfg.ValueDef{
		{
			Name:        CfgMaxSessionsPerMonth,
			Type:        cfg.ValueTypeInt,
			Description: "Maximum sessions an account may create per calendar month, 0 for unlimited",
			Default:     0,
		},
	}
}

type dalQuotaGate struct {
	dal      dal.DAL
	clk      clock.Clock
	cfgStore cfg.Store
}

// NewQuotaGate returns a QuotaGate enforcing the per-month session limit
// against the database.
func NewQuotaGate(dl dal.DAL, clk clock.Clock, cfgStore cfg.Store) QuotaGate {
	return &dalQuotaGate{dal: dl, clk: clk, cfgStore: cfgStore}
}

func (g *dalQuotaGate) CanCreateSession(accountID string) error {
	max := g.cfgStore.Snapshot().Int(CfgMaxSessionsPerMonth)
	if max <= 0 {
		return nil
	}
	now := g.clk.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	count, err := g.dal.SessionCountSince(accountID, monthStart)
	if err != nil {
		return errors.Trace(err)
	}
	if count >= max {
		return errors.Trace(&QuotaError{Reason: "monthly transcription limit reached"})
	}
	return nil
}

type allowAllDirectory struct{}

// NewAllowAllDirectory returns a CoachingSessionDirectory that accepts every
// link. Used when no directory service is configured.
func NewAllowAllDirectory() CoachingSessionDirectory {
	return allowAllDirectory{}
}

func (allowAllDirectory) CanLinkCoachingSession(accountID, coachingSessionID string) error {
	return nil
}
