package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Result describes the workbook an export job produced.
type Result struct {
	Rows     int    `json:"rows"`
	Sheets   int    `json:"sheets"`
	Output   string `json:"output"`   // Full path
	Filename string `json:"filename"` // Just filename for download
}

type Job struct {
	ID        string
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	status   Status
	logs     []string
	progress int // 0-100
	result   *Result
	err      string
}

// Snapshot is a consistent copy of a job's state.
type Snapshot struct {
	ID       string   `json:"job_id"`
	Status   Status   `json:"status"`
	Logs     []string `json:"logs"`
	Progress int      `json:"progress"`
	Result   *Result  `json:"result,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func newJob() *Job {
	ctx, cancel := context.WithCancel(context.Background())
	return &Job{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		status:    StatusRunning,
		logs:      []string{},
	}
}

// Context is cancelled when the job is cancelled or has ended.
func (j *Job) Context() context.Context {
	return j.ctx
}

// Cancel asks a running job to stop. It returns false when the job had
// already ended.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusRunning {
		return false
	}
	j.appendLog("Cancel requested by user...")
	j.cancel()
	return true
}

// Stopped marks a job that returned early because it was cancelled.
func (j *Job) Stopped() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusCancelled
	j.appendLog("Export cancelled.")
}

func (j *Job) Log(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.appendLog(msg)
}

func (j *Job) appendLog(msg string) {
	ts := time.Now().Format("15:04:05")
	j.logs = append(j.logs, fmt.Sprintf("[%s] %s", ts, msg))
}

func (j *Job) SetProgress(current, total int, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if total > 0 {
		j.progress = int(float64(current) / float64(total) * 100)
	}
	if msg != "" {
		j.appendLog(msg)
	}
}

func (j *Job) Fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusError
	j.err = msg
	j.logs = append(j.logs, "[ERROR] "+msg)
	j.cancel()
}

func (j *Job) Finish(res Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusDone
	j.result = &res
	j.progress = 100
	j.appendLog("Export finished.")
	j.cancel()
}

func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	logs := make([]string, len(j.logs))
	copy(logs, j.logs)
	s := Snapshot{
		ID:       j.ID,
		Status:   j.status,
		Logs:     logs,
		Progress: j.progress,
		Error:    j.err,
	}
	if j.result != nil {
		res := *j.result
		s.Result = &res
	}
	return s
}

// Store keeps jobs in memory for the life of the process.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

func (s *Store) Create() *Job {
	job := newJob()
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job
}

func (s *Store) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}
