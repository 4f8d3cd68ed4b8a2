// Package mocks provides mock implementations for testing the jobcore services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Claim(gomock.Any(), jobID, "worker-1").Return(true, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
// This creates MockJobRepository with methods for all JobRepository interface methods:
// Submit, FindActiveDuplicate, GetByID, ClaimCandidates, Claim, ReportProgress, Complete, Fail, Cancel, List,
// FindCachedResult
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/creatorhub/jobcore/internal/core JobRepository

// Generate mock for JobLogRepository interface from internal/core package.
// This creates MockJobLogRepository with methods for all JobLogRepository interface methods:
// AppendLog, ListLogs
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_log_repository_mock.go github.com/creatorhub/jobcore/internal/core JobLogRepository

// Generate mock for SweeperRepository interface from internal/core package.
// This creates MockSweeperRepository with methods for all SweeperRepository interface methods:
// RetryFailed, ExpirePending, FailStuck, PurgeTerminal
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=sweeper_repository_mock.go github.com/creatorhub/jobcore/internal/core SweeperRepository

// Generate mock for WebhookRepository interface from internal/core package.
// This creates MockWebhookRepository with methods for all WebhookRepository interface methods:
// LogEvent, GetByExternalID, MarkProcessed, RetryEligible, PurgeProcessed
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=webhook_repository_mock.go github.com/creatorhub/jobcore/internal/core WebhookRepository

// Generate mock for TTLCacheRepository interface from internal/core package.
// This creates MockTTLCacheRepository with methods for all TTLCacheRepository interface methods:
// Set, Get, DeletePattern, PurgeExpired
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=ttl_cache_repository_mock.go github.com/creatorhub/jobcore/internal/core TTLCacheRepository

// Generate mock for CacheTier interface from internal/core package.
// This creates MockCacheTier with methods for all CacheTier interface methods:
// Set, Get, DeletePattern, Health
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_tier_mock.go github.com/creatorhub/jobcore/internal/core CacheTier
