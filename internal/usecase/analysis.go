package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/glaucoma-agent/internal/diagnosis"
	"github.com/example/glaucoma-agent/internal/inference"
	"github.com/example/glaucoma-agent/internal/logging"
	"github.com/example/glaucoma-agent/internal/session"
)

var (
	// ErrNoImage means the submission carried no image bytes.
	ErrNoImage = errors.New("no image selected")
	// ErrNoEndpoint means the session has an empty server URL.
	ErrNoEndpoint = errors.New("server URL is empty")
	// ErrInFlight means the session already has an analysis outstanding.
	ErrInFlight = errors.New("an analysis is already in progress for this session")
)

// Analysis is the outcome of one successful submission.
type Analysis struct {
	RequestID string
	Endpoint  string
	Image     inference.Image
	Result    *diagnosis.Result
}

// AnalysisUseCase submits images to the session's inference endpoint.
type AnalysisUseCase struct {
	store   session.Store
	guard   *session.Guard
	client  inference.Client
	logger  *zap.Logger
	metrics *metrics
	now     func() time.Time
}

// NewAnalysisUseCase constructs a new use case instance.
func NewAnalysisUseCase(store session.Store, guard *session.Guard, client inference.Client, logger *zap.Logger) *AnalysisUseCase {
	return &AnalysisUseCase{
		store:   store,
		guard:   guard,
		client:  client,
		logger:  logger.Named("analysis_usecase"),
		metrics: &metrics{},
		now:     time.Now,
	}
}

// Endpoint returns the server URL configured for the session.
func (uc *AnalysisUseCase) Endpoint(ctx context.Context, sessionID string) (string, error) {
	endpoint, err := uc.store.Endpoint(ctx, sessionID)
	if err != nil {
		return "", logging.NewOperationError("usecase.endpoint", "", err)
	}
	return endpoint, nil
}

// UpdateEndpoint replaces the session's server URL. Surrounding whitespace is dropped.
func (uc *AnalysisUseCase) UpdateEndpoint(ctx context.Context, sessionID, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if err := uc.store.SetEndpoint(ctx, sessionID, endpoint); err != nil {
		return logging.NewOperationError("usecase.update_endpoint", "", err)
	}
	logging.WithSession(uc.logger, sessionID).Info("server url updated", zap.String("endpoint", endpoint))
	return nil
}

// Analyze forwards img to the session's endpoint once and returns the parsed
// diagnosis. Failures are terminal for the submission; nothing is retried or
// kept from earlier submissions.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, sessionID string, img inference.Image) (*Analysis, error) {
	if len(img.Data) == 0 {
		return nil, ErrNoImage
	}

	endpoint, err := uc.Endpoint(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}

	release, ok := uc.guard.TryAcquire(sessionID)
	if !ok {
		uc.metrics.rejected.Add(1)
		return nil, ErrInFlight
	}
	defer release()

	requestID := uuid.NewString()
	opLogger := logging.WithSession(logging.WithOperation(uc.logger, "usecase.analyze", requestID), sessionID)
	opLogger.Info("submitting image",
		zap.String("endpoint", endpoint),
		zap.String("filename", img.Filename),
		zap.Int("bytes", len(img.Data)),
	)

	started := uc.now()
	result, err := uc.client.Predict(ctx, endpoint, img)
	latency := uc.now().Sub(started)
	if err != nil {
		uc.metrics.recordFailure(err, latency)
		opLogger.Warn("analysis failed", zap.Error(err), zap.Duration("latency", latency))
		return nil, logging.NewOperationError("usecase.analyze", requestID, err)
	}

	uc.metrics.recordSuccess(latency)
	opLogger.Info("analysis completed",
		zap.String("classification", result.Classification),
		zap.String("ratio", result.FormatRatio()),
		zap.Bool("annotated", result.HasImage()),
		zap.Duration("latency", latency),
	)

	return &Analysis{
		RequestID: requestID,
		Endpoint:  endpoint,
		Image:     img,
		Result:    result,
	}, nil
}
