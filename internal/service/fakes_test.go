package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spamguard/internal/apperrors"
	"spamguard/internal/models"
	"spamguard/internal/quota"
)

// memRegistry is an in-memory stand-in for the Postgres model registry.
type memRegistry struct {
	mu       sync.Mutex
	versions map[string]*models.ModelVersion
}

func newMemRegistry() *memRegistry {
	return &memRegistry{versions: map[string]*models.ModelVersion{}}
}

func (r *memRegistry) Resolve(_ context.Context, name, versionOrLatest string) (*models.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if versionOrLatest == "" || versionOrLatest == models.VersionLatest {
		var best *models.ModelVersion
		for _, mv := range r.versions {
			if mv.Name != name || mv.Discarded {
				continue
			}
			if mv.IsActive {
				out := *mv
				return &out, nil
			}
			if best == nil || mv.Version > best.Version {
				best = mv
			}
		}
		if best == nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrModelNotFound, name)
		}
		out := *best
		return &out, nil
	}
	want, err := strconv.Atoi(strings.TrimPrefix(versionOrLatest, "v"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s@%s", apperrors.ErrModelNotFound, name, versionOrLatest)
	}
	for _, mv := range r.versions {
		if mv.Name == name && mv.Version == want && !mv.Discarded {
			out := *mv
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s@%s", apperrors.ErrModelNotFound, name, versionOrLatest)
}

func (r *memRegistry) Register(_ context.Context, candidate *models.ModelVersion) (*models.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	candidate.IsActive = false
	candidate.Discarded = false
	candidate.CreatedAt = time.Now().UTC()
	max := 0
	for _, mv := range r.versions {
		if mv.Name == candidate.Name && mv.Version > max {
			max = mv.Version
		}
	}
	candidate.Version = max + 1
	stored := *candidate
	r.versions[candidate.ID] = &stored
	return candidate, nil
}

func (r *memRegistry) Promote(_ context.Context, versionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.versions[versionID]
	if !ok {
		return fmt.Errorf("%w: version %s", apperrors.ErrModelNotFound, versionID)
	}
	for _, mv := range r.versions {
		if mv.Name == target.Name {
			mv.IsActive = false
		}
	}
	target.IsActive = true
	return nil
}

func (r *memRegistry) ActiveVersion(_ context.Context, name string) (*models.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mv := range r.versions {
		if mv.Name == name && mv.IsActive {
			out := *mv
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memRegistry) List(_ context.Context, name string) ([]*models.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ModelVersion
	for _, mv := range r.versions {
		if mv.Name == name {
			cp := *mv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (r *memRegistry) ListAll(_ context.Context) ([]*models.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ModelVersion
	for _, mv := range r.versions {
		cp := *mv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version > out[j].Version
	})
	return out, nil
}

func (r *memRegistry) Discard(_ context.Context, versionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mv, ok := r.versions[versionID]; ok {
		mv.Discarded = true
		mv.IsActive = false
	}
	return nil
}

func (r *memRegistry) version(id string) *models.ModelVersion {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mv, ok := r.versions[id]; ok {
		cp := *mv
		return &cp
	}
	return nil
}

func (r *memRegistry) activeCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, mv := range r.versions {
		if mv.Name == name && mv.IsActive {
			n++
		}
	}
	return n
}

// memPredictions records saves; failSave simulates a broken store.
type memPredictions struct {
	mu       sync.Mutex
	saved    []*models.PredictionResult
	failSave bool
}

func (p *memPredictions) Save(_ context.Context, result *models.PredictionResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSave {
		return fmt.Errorf("store unavailable")
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	cp := *result
	p.saved = append(p.saved, &cp)
	return nil
}

func (p *memPredictions) History(_ context.Context, accountID string, limit, offset int) ([]*models.PredictionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*models.PredictionResult
	for i := len(p.saved) - 1; i >= 0; i-- {
		if p.saved[i].AccountID == accountID {
			out = append(out, p.saved[i])
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (p *memPredictions) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saved)
}

// stubLedger admits or denies everything.
type stubLedger struct {
	mu    sync.Mutex
	calls int
	deny  bool
}

func (l *stubLedger) Admit(context.Context, string, string) (quota.Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.deny {
		return quota.Decision{Allowed: false, RetryAfter: 17 * time.Second}, nil
	}
	return quota.Decision{Allowed: true}, nil
}

func (l *stubLedger) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// memDatasets is an in-memory dataset store.
type memDatasets struct {
	mu       sync.Mutex
	datasets map[string]*models.Dataset
}

func newMemDatasets() *memDatasets {
	return &memDatasets{datasets: map[string]*models.Dataset{}}
}

func (d *memDatasets) Create(_ context.Context, dataset *models.Dataset) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if dataset.ID == "" {
		dataset.ID = uuid.NewString()
	}
	cp := *dataset
	d.datasets[dataset.ID] = &cp
	return nil
}

func (d *memDatasets) GetByID(_ context.Context, id string) (*models.Dataset, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dataset, ok := d.datasets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDatasetNotFound, id)
	}
	cp := *dataset
	return &cp, nil
}

func (d *memDatasets) UpdateStatus(_ context.Context, id, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if dataset, ok := d.datasets[id]; ok {
		dataset.Status = status
	}
	return nil
}

func (d *memDatasets) List(_ context.Context, accountID string) ([]*models.Dataset, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*models.Dataset
	for _, dataset := range d.datasets {
		if dataset.AccountID == accountID {
			cp := *dataset
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memJobs enforces the one-live-job-per-model invariant like the partial
// unique index does in Postgres.
type memJobs struct {
	mu                 sync.Mutex
	jobs               map[string]*models.RetrainingJob
	cancelOnAcquire    bool
	cancelOnSetVersion bool
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[string]*models.RetrainingJob{}}
}

func (j *memJobs) Acquire(_ context.Context, job *models.RetrainingJob) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, existing := range j.jobs {
		if existing.TargetModelName == job.TargetModelName && !existing.Terminal() {
			return fmt.Errorf("%w: %s", apperrors.ErrJobConflict, job.TargetModelName)
		}
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = models.JobQueued
	job.CreatedAt = time.Now().UTC()
	job.CancelRequested = j.cancelOnAcquire
	cp := *job
	j.jobs[job.ID] = &cp
	return nil
}

func (j *memJobs) GetByID(_ context.Context, id string) (*models.RetrainingJob, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, id)
	}
	cp := *job
	return &cp, nil
}

func (j *memJobs) List(_ context.Context, limit int) ([]*models.RetrainingJob, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*models.RetrainingJob
	for _, job := range j.jobs {
		cp := *job
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (j *memJobs) UpdateStatus(_ context.Context, id, status string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, id)
	}
	now := time.Now().UTC()
	job.Status = status
	if status == models.JobRunning && job.StartedAt == nil {
		job.StartedAt = &now
	}
	if job.Terminal() {
		job.CompletedAt = &now
	}
	return nil
}

func (j *memJobs) UpdateProgress(_ context.Context, id string, progress int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if job, ok := j.jobs[id]; ok {
		job.Progress = progress
	}
	return nil
}

func (j *memJobs) AppendLog(_ context.Context, id, line string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if job, ok := j.jobs[id]; ok {
		job.Logs += line + "\n"
	}
	return nil
}

func (j *memJobs) SetModelVersion(_ context.Context, id, modelVersionID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if job, ok := j.jobs[id]; ok {
		v := modelVersionID
		job.ModelVersionID = &v
		if j.cancelOnSetVersion {
			job.CancelRequested = true
		}
	}
	return nil
}

func (j *memJobs) Heartbeat(_ context.Context, id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if job, ok := j.jobs[id]; ok {
		now := time.Now().UTC()
		job.Heartbeat = &now
	}
	return nil
}

func (j *memJobs) RequestCancel(_ context.Context, id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[id]
	if !ok || job.Terminal() {
		return fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, id)
	}
	job.CancelRequested = true
	return nil
}

func (j *memJobs) MarkStaleRunning(_ context.Context, cutoff time.Time) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var n int64
	for _, job := range j.jobs {
		if job.Status == models.JobRunning && (job.Heartbeat == nil || job.Heartbeat.Before(cutoff)) {
			job.Status = models.JobFailed
			n++
		}
	}
	return n, nil
}
