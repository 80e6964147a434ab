package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	attrRole     = attribute.Key("role")
	attrStage    = attribute.Key("stage")
	attrStatus   = attribute.Key("status")
	attrStrategy = attribute.Key("strategy")
)

var (
	instrumentsOnce   sync.Once
	runsCounter       metric.Int64Counter
	stageDuration     metric.Float64Histogram
	stageFailures     metric.Int64Counter
	mergesCounter     metric.Int64Counter
	conflictsCounter  metric.Int64Counter
	violationsCounter metric.Int64Counter
	syncsCounter      metric.Int64Counter
)

func initInstruments(m metric.Meter) error {
	var err error
	instrumentsOnce.Do(func() {
		runsCounter, err = m.Int64Counter("crew_pipeline_runs_total", metric.WithDescription("Total integration pipeline runs by final status"))
		if err != nil {
			return
		}
		stageDuration, err = m.Float64Histogram("crew_stage_duration_seconds", metric.WithDescription("Pipeline stage duration in seconds"))
		if err != nil {
			return
		}
		stageFailures, err = m.Int64Counter("crew_stage_failures_total", metric.WithDescription("Pipeline stage failures"))
		if err != nil {
			return
		}
		mergesCounter, err = m.Int64Counter("crew_branches_merged_total", metric.WithDescription("Agent branches merged into the integration branch"))
		if err != nil {
			return
		}
		conflictsCounter, err = m.Int64Counter("crew_conflicts_resolved_total", metric.WithDescription("Merge conflicts resolved by strategy"))
		if err != nil {
			return
		}
		violationsCounter, err = m.Int64Counter("crew_boundary_violations_total", metric.WithDescription("Boundary violations reported per role"))
		if err != nil {
			return
		}
		syncsCounter, err = m.Int64Counter("crew_branch_syncs_total", metric.WithDescription("Background branch sync rounds per role"))
	})
	return err
}

// RecordRun records a completed pipeline run with its final status.
func RecordRun(ctx context.Context, status string) {
	if runsCounter != nil {
		runsCounter.Add(ctx, 1, metric.WithAttributes(attrStatus.String(status)))
	}
}

// RecordStage records one stage's outcome and duration.
func RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	if stageDuration != nil {
		stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrStage.String(stage)))
	}
	if status == "failed" && stageFailures != nil {
		stageFailures.Add(ctx, 1, metric.WithAttributes(attrStage.String(stage)))
	}
}

// RecordMerge records one agent branch merged.
func RecordMerge(ctx context.Context, role string) {
	if mergesCounter != nil {
		mergesCounter.Add(ctx, 1, metric.WithAttributes(attrRole.String(role)))
	}
}

// RecordConflictResolved records one conflict resolution by strategy.
func RecordConflictResolved(ctx context.Context, strategy string) {
	if conflictsCounter != nil {
		conflictsCounter.Add(ctx, 1, metric.WithAttributes(attrStrategy.String(strategy)))
	}
}

// RecordViolations records boundary violations for a role.
func RecordViolations(ctx context.Context, role string, n int) {
	if violationsCounter != nil && n > 0 {
		violationsCounter.Add(ctx, int64(n), metric.WithAttributes(attrRole.String(role)))
	}
}

// RecordSync records one background branch sync for a role.
func RecordSync(ctx context.Context, role string) {
	if syncsCounter != nil {
		syncsCounter.Add(ctx, 1, metric.WithAttributes(attrRole.String(role)))
	}
}
