// Package metrics emits the job, sweeper, webhook and cache series through a statsd.Sink.
// Every emitter tolerates a nil sink.
package metrics

import (
	"time"

	obserrors "github.com/creatorhub/jobcore/internal/observability/errors"
	"github.com/creatorhub/jobcore/internal/observability/statsd"
)

// Values of the "result" tag.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// JobMetric is one attempted lifecycle transition.
type JobMetric struct {
	JobType    string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle counts job.transition and, when Duration is set, times job.duration.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}
	tags := func() map[string]string {
		return map[string]string{
			"job_type":    in.JobType,
			"transition":  in.Transition,
			"result":      in.Result,
			"error_class": errorClass(in.Err),
		}
	}
	sink.Count("job.transition", 1, tags())
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, tags())
	}
}

// errorClass never returns "" so all series of a metric share the same tag keys.
func errorClass(err error) string {
	if err == nil {
		return "none"
	}
	return obserrors.Classify(err)
}
