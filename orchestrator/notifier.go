package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aptrag/chatbot/apperr"
	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/flow"
)

// Notifier delivers a critical-severity failure alert to whoever
// operates the system (§4.L "fire an administrator notification").
type Notifier interface {
	Notify(ctx context.Context, job *domain.Job, err *apperr.Error)
}

// logNotifier is the default Notifier: it logs at error level and
// calls the email/Slack placeholders, which are no-ops until a
// delivery channel is configured. Wiring an actual SMTP or webhook
// client is out of scope (§1) — the orchestrator just needs somewhere
// to call.
type logNotifier struct{}

func (logNotifier) Notify(ctx context.Context, job *domain.Job, err *apperr.Error) {
	slog.ErrorContext(ctx, "critical ETL failure, notifying administrator",
		"job_id", job.ID, "user_id", job.UserID, "kind", err.Kind, "stage", err.Stage)
	notifyEmail(ctx, job, err)
	notifySlack(ctx, job, err)
}

func notifyEmail(_ context.Context, _ *domain.Job, _ *apperr.Error) {
	// placeholder: no email transport configured.
}

func notifySlack(_ context.Context, _ *domain.Job, _ *apperr.Error) {
	// placeholder: no Slack webhook configured.
}

// dispatchNotification runs the notifier in the background so a slow or
// unreachable delivery channel never delays handleFailure's return. The
// in-flight flow.AsyncResult is tracked so DrainNotifications can wait
// for it before the process exits.
func (o *Orchestrator) dispatchNotification(ctx context.Context, job *domain.Job, failure *apperr.Error) {
	ar := flow.NewAsyncResult[struct{}](context.Background())

	o.notifyMu.Lock()
	o.pendingNotifications = append(o.pendingNotifications, ar)
	o.notifyMu.Unlock()

	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		o.notifier.Notify(notifyCtx, job, failure)
		ar.SetResult(struct{}{})
	}()
}

// DrainNotifications blocks until every admin notification dispatched so
// far has either delivered or ctx is done, whichever comes first. Callers
// that exit right after a critical-severity job failure (the CLI's `etl
// run`, in particular) should call this so the process doesn't end while
// a notification is still in flight.
func (o *Orchestrator) DrainNotifications(ctx context.Context) error {
	o.notifyMu.Lock()
	pending := o.pendingNotifications
	o.pendingNotifications = nil
	o.notifyMu.Unlock()

	for _, ar := range pending {
		done := make(chan struct{})
		go func() {
			ar.Result()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
