// Package refresh re-reconciles tracked projects one at a time.
package refresh

import (
	"context"
	"time"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/giorgiojulius/cryptojulius/internal/reconcile"
	"github.com/sirupsen/logrus"
)

// Failure records why one project kept its previous snapshot.
type Failure struct {
	Key models.ProjectKey `json:"key"`
	Err error             `json:"-"`
}

// Report is the outcome of one refresh cycle.
type Report struct {
	// Projects is the full list in input order, refreshed where possible.
	Projects []models.Project
	// Refreshed holds only the projects that reconciled successfully.
	Refreshed []models.Project
	Failed    []Failure
	Duration  time.Duration
}

// PacerFactory returns a fresh pacer for a refresh cycle.
type PacerFactory func() Pacer

// Orchestrator refreshes projects sequentially through the reconciliation engine.
type Orchestrator struct {
	engine   reconcile.Reconciler
	newPacer PacerFactory
}

// NewOrchestrator creates an orchestrator. A nil factory disables pacing.
func NewOrchestrator(engine reconcile.Reconciler, newPacer PacerFactory) *Orchestrator {
	return &Orchestrator{engine: engine, newPacer: newPacer}
}

// RefreshAll reconciles every project with its stored ATH as history. A failed item keeps
// its previous snapshot and the cycle goes on. Only context cancellation stops the cycle
// early; the report then holds the remaining items unchanged alongside the error.
func (o *Orchestrator) RefreshAll(ctx context.Context, projects []models.Project) (*Report, error) {
	start := time.Now()
	report := &Report{Projects: make([]models.Project, len(projects))}
	for i, p := range projects {
		report.Projects[i] = p.Clone()
	}

	var pacer Pacer
	if o.newPacer != nil {
		pacer = o.newPacer()
	}

	for i, p := range projects {
		if pacer != nil {
			if err := pacer.Wait(ctx); err != nil {
				report.Duration = time.Since(start)
				return report, err
			}
		}
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		log := logrus.WithField("project", p.Key().String())
		data, err := o.engine.Reconcile(ctx, p.ChainID, p.Address, p.ATH)
		if pacer != nil {
			pacer.Record(err != nil)
		}
		if err != nil {
			log.WithError(err).Warn("Project refresh failed, keeping previous data")
			report.Failed = append(report.Failed, Failure{Key: p.Key(), Err: err})
			continue
		}

		updated := p.Clone()
		updated.TokenData = *data
		updated.Address = p.Address
		updated.ChainID = p.ChainID
		updated.ATH = reconcile.AdvanceATH(p.ATH, data.ATH)
		report.Projects[i] = updated
		report.Refreshed = append(report.Refreshed, updated.Clone())
	}

	report.Duration = time.Since(start)
	logrus.WithFields(logrus.Fields{
		"total":     len(projects),
		"refreshed": len(report.Refreshed),
		"failed":    len(report.Failed),
		"duration":  report.Duration.String(),
	}).Info("Refresh cycle completed")
	return report, nil
}
