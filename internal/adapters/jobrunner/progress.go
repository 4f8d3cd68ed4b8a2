package jobrunner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/creatorhub/jobcore/internal/domain/model"
)

// ProgressReporter lets a handler report on the job it is running.
type ProgressReporter interface {
	// Report records progress. It returns ErrJobStopped, and cancels the handler's context,
	// once the job is no longer processing.
	Report(ctx context.Context, percent int, message string) error
	// Log appends an entry to the job's log.
	Log(ctx context.Context, level model.JobLogLevel, message string, metadata json.RawMessage) error
}

type progressReporter struct {
	jobs  JobAPI
	jobID string
	stop  context.CancelCauseFunc
}

func (p *progressReporter) Report(ctx context.Context, percent int, message string) error {
	upd := model.ProgressUpdate{JobID: p.jobID, Percent: percent}
	if message != "" {
		upd.Message = &message
	}
	ok, err := p.jobs.ReportProgress(ctx, upd)
	if err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	if !ok {
		p.stop(ErrJobStopped)
		return ErrJobStopped
	}
	return nil
}

func (p *progressReporter) Log(ctx context.Context, level model.JobLogLevel, message string, metadata json.RawMessage) error {
	if _, err := p.jobs.AppendLog(ctx, &model.AppendLogRequest{
		JobID:    p.jobID,
		Level:    level,
		Message:  message,
		Metadata: metadata,
	}); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}
