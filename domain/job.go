package domain

import "time"

// JobStatus is the state of an ETL job as it moves through the
// orchestrator's stages.
type JobStatus string

const (
	JobPending                JobStatus = "pending"
	JobStarted                JobStatus = "started"
	JobProcessingQueries      JobStatus = "processing_queries"
	JobTransformingDocuments  JobStatus = "transforming_documents"
	JobGeneratingEmbeddings   JobStatus = "generating_embeddings"
	JobStoringDocuments       JobStatus = "storing_documents"
	JobSuccess                JobStatus = "success"
	JobFailure                JobStatus = "failure"
	JobPartial                JobStatus = "partial"
)

// TotalStages is the fixed total_steps value recorded on every job. The
// orchestrator runs eight stages; the first reports no percentage, so
// seven progress steps remain.
const TotalStages = 7

// StageProgress maps a stage's 0-based progress index (0 for stage 2
// through 6 for stage 8; stage 1 has none) to its reported completion
// percentage.
var StageProgress = [...]int{5, 20, 35, 50, 70, 90, 100}

// Job is the persistent per-job state record (§3 Job, §4.A Job Store).
type Job struct {
	ID        string
	UserID    string
	AnpSeq    int64
	Status    JobStatus
	Progress  int

	CurrentStep    int
	CompletedSteps int
	TotalSteps     int

	StartedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	ErrorMessage *string
	ErrorType    *string
	FailedStage  *string
	RetryCount   int

	QueryResultsSummary map[string]any
	DocumentsCreated    []string
}

// IsTerminal reports whether the job has reached a terminal status.
func (j *Job) IsTerminal() bool {
	return j.Status == JobSuccess || j.Status == JobFailure || j.Status == JobPartial
}

// JobUpdate is a partial field set applied to an existing Job (§4.A
// "update (partial field set)"). Nil fields are left unchanged.
type JobUpdate struct {
	Status              *JobStatus
	Progress             *int
	CurrentStep          *int
	CompletedSteps       *int
	CompletedAt          *time.Time
	ErrorMessage         *string
	ErrorType            *string
	FailedStage          *string
	RetryCount           *int
	QueryResultsSummary  map[string]any
	DocumentsCreated     []string
}
