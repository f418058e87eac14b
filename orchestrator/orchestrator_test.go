package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aptrag/chatbot/apperr"
	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/legacyquery"
)

type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
	seq  int
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*domain.Job)}
}

func (f *fakeJobStore) Create(_ context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if job.ID == "" {
		job.ID = "job-" + time.Now().Format("150405") + "-" + string(rune('a'+f.seq))
	}
	job.StartedAt = time.Now()
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobStore) Update(_ context.Context, jobID string, patch domain.JobUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return errors.New("not found")
	}
	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.Progress != nil {
		job.Progress = *patch.Progress
	}
	if patch.CurrentStep != nil {
		job.CurrentStep = *patch.CurrentStep
	}
	if patch.CompletedSteps != nil {
		job.CompletedSteps = *patch.CompletedSteps
	}
	if patch.CompletedAt != nil {
		job.CompletedAt = patch.CompletedAt
	}
	if patch.ErrorMessage != nil {
		job.ErrorMessage = patch.ErrorMessage
	}
	if patch.ErrorType != nil {
		job.ErrorType = patch.ErrorType
	}
	if patch.FailedStage != nil {
		job.FailedStage = patch.FailedStage
	}
	if patch.DocumentsCreated != nil {
		job.DocumentsCreated = patch.DocumentsCreated
	}
	return nil
}

func (f *fakeJobStore) Get(_ context.Context, jobID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *job
	return &cp, nil
}

type fakeQueryExecutor struct {
	result map[string]legacyquery.Result
}

func (f *fakeQueryExecutor) Run(_ context.Context, _ int64) map[string]legacyquery.Result {
	return f.result
}

func readyResults() map[string]legacyquery.Result {
	return map[string]legacyquery.Result{
		"tendencyQuery":             {QueryName: "tendencyQuery", Rows: []legacyquery.Row{{"id": 1}}},
		"topTendencyQuery":          {QueryName: "topTendencyQuery", Rows: []legacyquery.Row{{"id": 1}}},
		"thinkingSkillsQuery":       {QueryName: "thinkingSkillsQuery", Rows: []legacyquery.Row{{"id": 1}}},
		"careerRecommendationQuery": {QueryName: "careerRecommendationQuery", Rows: []legacyquery.Row{{"id": 1}}},
	}
}

type fakeTransformer struct {
	docs []domain.Document
}

func (f *fakeTransformer) TransformAll(_ context.Context, userID string, _ map[string]legacyquery.Result) []domain.Document {
	out := make([]domain.Document, len(f.docs))
	for i, d := range f.docs {
		d.UserID = userID
		out[i] = d
	}
	return out
}

type fakeEmbedder struct{}

func (fakeEmbedder) EnrichDocuments(_ context.Context, docs []domain.Document) []domain.Document {
	for i := range docs {
		docs[i].Embedding = make([]float32, 768)
	}
	return docs
}

type fakeDocRepo struct {
	mu       sync.Mutex
	stored   []domain.Document
	deleted  bool
	storeErr error
}

func (f *fakeDocRepo) ReplaceForUser(_ context.Context, _ string, docs []domain.Document) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = docs
	return nil
}

func (f *fakeDocRepo) DeleteForUser(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = true
	return nil
}

func sampleDocuments(n int) []domain.Document {
	docs := make([]domain.Document, n)
	for i := range docs {
		docs[i] = domain.Document{
			ID:      "doc",
			DocType: domain.DocPersonalityProfile,
			Metadata: domain.DocumentMetadata{
				SubType:         "profile",
				CompletionLevel: domain.CompletionComplete,
			},
			Content:     map[string]any{"summary": "sample"},
			SummaryText: "summary text",
		}
	}
	return docs
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ReadinessPollInterval = time.Millisecond
	cfg.ReadinessMaxAttempts = 5
	cfg.ReadinessForceThreshold = 3
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	cfg.JobTimeout = time.Second
	return cfg
}

func TestRunJobSucceedsEndToEnd(t *testing.T) {
	jobs := newFakeJobStore()
	docRepo := &fakeDocRepo{}
	o := New(jobs, &fakeQueryExecutor{result: readyResults()}, &fakeTransformer{docs: sampleDocuments(2)},
		fakeEmbedder{}, docRepo, nil, testConfig())

	job, err := o.RunJob(context.Background(), "user-1", 42)
	if err != nil {
		t.Fatalf("RunJob returned error: %v", err)
	}
	if job.Status != domain.JobSuccess {
		t.Fatalf("expected success status, got %s", job.Status)
	}
	if job.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", job.Progress)
	}
	if len(docRepo.stored) != 2 {
		t.Fatalf("expected 2 documents stored, got %d", len(docRepo.stored))
	}
}

// alwaysNotReady never reports readiness, exercising the force-progress
// threshold rather than a full timeout.
type alwaysNotReady struct{}

func (alwaysNotReady) IsReady(_ context.Context, _ int64) (bool, error) { return false, nil }

func TestRunJobForcesProgressPastReadinessThreshold(t *testing.T) {
	jobs := newFakeJobStore()
	docRepo := &fakeDocRepo{}
	cfg := testConfig()
	o := New(jobs, &fakeQueryExecutor{result: readyResults()}, &fakeTransformer{docs: sampleDocuments(1)},
		fakeEmbedder{}, docRepo, nil, cfg).WithReadinessChecker(alwaysNotReady{})

	job, err := o.RunJob(context.Background(), "user-2", 7)
	if err != nil {
		t.Fatalf("RunJob returned error: %v", err)
	}
	if job.Status != domain.JobSuccess {
		t.Fatalf("expected success despite forced readiness, got %s", job.Status)
	}
}

// flakyDocRepo fails the first N ReplaceForUser calls, then succeeds,
// exercising per-stage retry.
type flakyDocRepo struct {
	fakeDocRepo
	failures int
	calls    int
}

func (f *flakyDocRepo) ReplaceForUser(ctx context.Context, userID string, docs []domain.Document) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection refused")
	}
	return f.fakeDocRepo.ReplaceForUser(ctx, userID, docs)
}

func TestRunJobRetriesRetryableStageFailure(t *testing.T) {
	jobs := newFakeJobStore()
	docRepo := &flakyDocRepo{failures: 1}
	cfg := testConfig()
	o := New(jobs, &fakeQueryExecutor{result: readyResults()}, &fakeTransformer{docs: sampleDocuments(1)},
		fakeEmbedder{}, docRepo, nil, cfg)

	job, err := o.RunJob(context.Background(), "user-3", 9)
	if err != nil {
		t.Fatalf("RunJob returned error: %v", err)
	}
	if job.Status != domain.JobSuccess {
		t.Fatalf("expected eventual success, got %s", job.Status)
	}
	if docRepo.calls != 2 {
		t.Fatalf("expected 2 storage attempts, got %d", docRepo.calls)
	}
}

func TestRunJobFailsWhenTransformProducesNoDocuments(t *testing.T) {
	jobs := newFakeJobStore()
	docRepo := &fakeDocRepo{}
	cfg := testConfig()
	cfg.MaxRetriesPerStage = 0

	o := New(jobs, &fakeQueryExecutor{result: readyResults()}, &fakeTransformer{docs: nil},
		fakeEmbedder{}, docRepo, nil, cfg)

	job, err := o.RunJob(context.Background(), "user-4", 11)
	if err != nil {
		t.Fatalf("RunJob returned error: %v", err)
	}
	if job.Status != domain.JobFailure {
		t.Fatalf("expected failure when no documents were produced, got %s", job.Status)
	}
}

func TestCancelJobSetsFailureWithCancellationMessage(t *testing.T) {
	jobs := newFakeJobStore()
	docRepo := &fakeDocRepo{}
	o := New(jobs, &fakeQueryExecutor{result: readyResults()}, &fakeTransformer{docs: sampleDocuments(1)},
		fakeEmbedder{}, docRepo, nil, testConfig())

	job, err := o.RunJob(context.Background(), "user-5", 1)
	if err != nil {
		t.Fatalf("RunJob returned error: %v", err)
	}

	if err := o.CancelJob(context.Background(), job.ID); err != nil {
		t.Fatalf("CancelJob returned error: %v", err)
	}

	reloaded, err := jobs.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if reloaded.Status != domain.JobFailure {
		t.Fatalf("expected failure status after cancel, got %s", reloaded.Status)
	}
	if reloaded.ErrorMessage == nil || *reloaded.ErrorMessage != "Job cancelled by user" {
		t.Fatalf("expected cancellation message, got %v", reloaded.ErrorMessage)
	}
}

func TestPoolRunAllBoundsConcurrencyAndCollectsOutcomes(t *testing.T) {
	jobs := newFakeJobStore()
	docRepo := &fakeDocRepo{}
	cfg := testConfig()
	cfg.WorkerPoolSize = 2
	o := New(jobs, &fakeQueryExecutor{result: readyResults()}, &fakeTransformer{docs: sampleDocuments(1)},
		fakeEmbedder{}, docRepo, nil, cfg)
	pool := NewPool(o)

	requests := []JobRequest{
		{UserID: "a", AnpSeq: 1},
		{UserID: "b", AnpSeq: 2},
		{UserID: "c", AnpSeq: 3},
	}
	outcomes := pool.RunAll(context.Background(), requests)
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	for _, oc := range outcomes {
		if oc.Err != nil {
			t.Fatalf("unexpected outcome error: %v", oc.Err)
		}
		if oc.Job == nil || oc.Job.Status != domain.JobSuccess {
			t.Fatalf("expected successful job for %+v", oc.Request)
		}
	}
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	base := 60 * time.Second
	max := 300 * time.Second

	if got := backoffDelay(1, base, max); got != base {
		t.Fatalf("attempt 1: expected %v, got %v", base, got)
	}
	if got := backoffDelay(2, base, max); got != 120*time.Second {
		t.Fatalf("attempt 2: expected 120s, got %v", got)
	}
	if got := backoffDelay(3, base, max); got != 240*time.Second {
		t.Fatalf("attempt 3: expected 240s, got %v", got)
	}
	if got := backoffDelay(4, base, max); got != max {
		t.Fatalf("attempt 4: expected capped at %v, got %v", max, got)
	}
}

// blockingNotifier holds Notify open until release is closed, so tests can
// observe that dispatchNotification doesn't block its caller and that
// DrainNotifications does wait for delivery to finish.
type blockingNotifier struct {
	release  chan struct{}
	notified chan struct{}
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{release: make(chan struct{}), notified: make(chan struct{}, 1)}
}

func (n *blockingNotifier) Notify(_ context.Context, _ *domain.Job, _ *apperr.Error) {
	<-n.release
	n.notified <- struct{}{}
}

func TestDispatchNotificationDoesNotBlockCaller(t *testing.T) {
	notifier := newBlockingNotifier()
	o := New(newFakeJobStore(), &fakeQueryExecutor{}, &fakeTransformer{}, fakeEmbedder{}, &fakeDocRepo{}, nil, testConfig()).
		WithNotifier(notifier)

	job := &domain.Job{ID: "job-notify"}
	done := make(chan struct{})
	go func() {
		o.dispatchNotification(context.Background(), job, apperr.New(errors.New("boom")))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatchNotification blocked waiting for the notifier")
	}

	close(notifier.release)
	select {
	case <-notifier.notified:
	case <-time.After(time.Second):
		t.Fatal("notifier was never invoked")
	}
}

func TestDrainNotificationsWaitsForInFlightDelivery(t *testing.T) {
	notifier := newBlockingNotifier()
	o := New(newFakeJobStore(), &fakeQueryExecutor{}, &fakeTransformer{}, fakeEmbedder{}, &fakeDocRepo{}, nil, testConfig()).
		WithNotifier(notifier)

	o.dispatchNotification(context.Background(), &domain.Job{ID: "job-drain"}, apperr.New(errors.New("boom")))

	drained := make(chan error, 1)
	go func() {
		drained <- o.DrainNotifications(context.Background())
	}()

	select {
	case <-drained:
		t.Fatal("DrainNotifications returned before the notifier released")
	case <-time.After(50 * time.Millisecond):
	}

	close(notifier.release)
	<-notifier.notified

	select {
	case err := <-drained:
		if err != nil {
			t.Fatalf("DrainNotifications returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("DrainNotifications never returned after the notifier released")
	}
}

func TestDrainNotificationsRespectsContextDeadline(t *testing.T) {
	notifier := newBlockingNotifier()
	o := New(newFakeJobStore(), &fakeQueryExecutor{}, &fakeTransformer{}, fakeEmbedder{}, &fakeDocRepo{}, nil, testConfig()).
		WithNotifier(notifier)
	defer close(notifier.release)

	o.dispatchNotification(context.Background(), &domain.Job{ID: "job-timeout"}, apperr.New(errors.New("boom")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := o.DrainNotifications(ctx); err == nil {
		t.Fatal("expected DrainNotifications to return the context deadline error")
	}
}
