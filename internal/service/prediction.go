package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"spamguard/internal/apperrors"
	"spamguard/internal/classifier"
	"spamguard/internal/models"
	"spamguard/internal/notifier"
	"spamguard/internal/quota"
	"spamguard/internal/repository"
)

// MaxTextLength is the largest accepted input, in runes.
const MaxTextLength = 10000

// PredictionService runs the full classification pipeline: validation, quota
// admission, model resolution, inference, explanation, persistence.
type PredictionService struct {
	ledger      quota.Ledger
	registry    repository.ModelRegistry
	predictions repository.PredictionRepository
	notifier    notifier.Notifier
	adapters    *AdapterCache
	modelName   string
	timeout     time.Duration
	logger      *zap.Logger
}

// NewPredictionService wires the prediction orchestrator.
func NewPredictionService(
	ledger quota.Ledger,
	registry repository.ModelRegistry,
	predictions repository.PredictionRepository,
	n notifier.Notifier,
	modelName string,
	timeout time.Duration,
	logger *zap.Logger,
) *PredictionService {
	return &PredictionService{
		ledger:      ledger,
		registry:    registry,
		predictions: predictions,
		notifier:    n,
		adapters:    NewAdapterCache(),
		modelName:   modelName,
		timeout:     timeout,
		logger:      logger,
	}
}

type inferenceOutcome struct {
	label      string
	confidence float64
	matched    []string
	err        error
}

// Predict classifies one text synchronously. Validation failures consume no
// quota; denied requests run no inference and are never persisted.
func (s *PredictionService) Predict(ctx context.Context, req *models.PredictionRequest) (*models.PredictionResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text must not be empty", apperrors.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return nil, fmt.Errorf("%w: text exceeds %d characters", apperrors.ErrInvalidInput, MaxTextLength)
	}

	decision, err := s.ledger.Admit(ctx, req.AccountID, req.Tier)
	if err != nil {
		s.logger.Error("Quota admission failed", zap.Error(err), zap.String("account_id", req.AccountID))
		return nil, fmt.Errorf("quota check failed: %w", err)
	}
	if !decision.Allowed {
		return nil, &apperrors.RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	// The resolved version is captured here and used for the whole request; a
	// concurrent promotion does not affect in-flight predictions.
	mv, err := s.registry.Resolve(ctx, s.modelName, req.ModelVersion)
	if err != nil {
		s.logger.Error("Model resolution failed", zap.Error(err),
			zap.String("model", s.modelName), zap.String("requested_version", req.ModelVersion))
		return nil, fmt.Errorf("%w: %s", apperrors.ErrModelUnavailable, s.modelName)
	}

	adapter, err := s.adapters.Get(mv)
	if err != nil {
		s.logger.Error("Model adapter load failed", zap.Error(err),
			zap.String("model", mv.Name), zap.Int("version", mv.Version))
		return nil, fmt.Errorf("%w: version %s", apperrors.ErrModelUnavailable, mv.VersionString())
	}

	outcome, err := s.infer(ctx, adapter, req.Text)
	if err != nil {
		return nil, err
	}

	result := &models.PredictionResult{
		AccountID:    req.AccountID,
		ModelID:      mv.ID,
		InputText:    req.Text,
		Label:        outcome.label,
		Confidence:   outcome.confidence,
		Explanation:  classifier.BuildExplanation(outcome.matched),
		ModelVersion: mv.VersionString(),
		CreatedAt:    time.Now().UTC(),
	}

	// Predictions are best-effort logged, never best-effort computed: a
	// persistence failure does not invalidate the result.
	if err := s.predictions.Save(ctx, result); err != nil {
		s.logger.Error("Failed to persist prediction", zap.Error(err),
			zap.String("account_id", req.AccountID), zap.String("label", result.Label))
	} else {
		go func(r models.PredictionResult) {
			notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.notifier.PredictionCreated(notifyCtx, &r)
		}(*result)
	}

	return result, nil
}

// infer runs feature extraction and inference under the configured deadline so
// a slow model cannot hang the caller.
func (s *PredictionService) infer(ctx context.Context, adapter classifier.Adapter, text string) (*inferenceOutcome, error) {
	inferCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan *inferenceOutcome, 1)
	go func() {
		features, matched := classifier.Extract(text, adapter.Vocabulary())
		label, confidence, err := adapter.Infer(features)
		done <- &inferenceOutcome{label: label, confidence: confidence, matched: matched, err: err}
	}()

	select {
	case outcome := <-done:
		if outcome.err != nil {
			s.logger.Error("Inference failed", zap.Error(outcome.err))
			return nil, fmt.Errorf("inference failed: %w", outcome.err)
		}
		return outcome, nil
	case <-inferCtx.Done():
		return nil, fmt.Errorf("inference deadline exceeded: %w", inferCtx.Err())
	}
}

// ListModels returns registered versions, optionally scoped to one model name.
func (s *PredictionService) ListModels(ctx context.Context, name string) ([]*models.ModelVersion, error) {
	if name != "" {
		return s.registry.List(ctx, name)
	}
	return s.registry.ListAll(ctx)
}

// History returns the account's persisted predictions, newest first.
func (s *PredictionService) History(ctx context.Context, accountID string, limit, offset int) ([]*models.PredictionResult, error) {
	return s.predictions.History(ctx, accountID, limit, offset)
}
