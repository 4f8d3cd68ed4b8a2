package config

import "time"

// JobsConfig holds job lifecycle limits and submission defaults.
type JobsConfig struct {
	// MaxActivePerOwner caps jobs in pending or processing per owner.
	MaxActivePerOwner int `env:"MAX_ACTIVE_PER_OWNER" envDefault:"10"`

	// DefaultPriority applies when a submission omits priority (1..10).
	DefaultPriority int `env:"DEFAULT_PRIORITY" envDefault:"5"`

	// DefaultMaxRetries is stored on every new job.
	DefaultMaxRetries int `env:"DEFAULT_MAX_RETRIES" envDefault:"3"`

	// DefaultTTL sets expires_at relative to submission. Zero disables expiry.
	DefaultTTL time.Duration `env:"DEFAULT_TTL" envDefault:"24h"`

	// DedupeWindow is the default window used by SubmitOrReuse.
	DedupeWindow time.Duration `env:"DEDUPE_WINDOW" envDefault:"5m"`

	// ClaimCandidates is how many candidates ClaimNext tries per selection round.
	ClaimCandidates int `env:"CLAIM_CANDIDATES" envDefault:"5"`
}

// Sanitize applies guardrails to job configuration values.
func (j *JobsConfig) Sanitize() {
	if j.MaxActivePerOwner < 1 {
		j.MaxActivePerOwner = 1
	}
	if j.DefaultPriority < 1 || j.DefaultPriority > 10 {
		j.DefaultPriority = 5
	}
	if j.DefaultMaxRetries < 0 {
		j.DefaultMaxRetries = 0
	}
	if j.DefaultTTL < 0 {
		j.DefaultTTL = 0
	}
	if j.DedupeWindow <= 0 {
		j.DedupeWindow = 5 * time.Minute
	}
	if j.ClaimCandidates < 1 {
		j.ClaimCandidates = 1
	}
	if j.ClaimCandidates > 100 {
		j.ClaimCandidates = 100
	}
}
