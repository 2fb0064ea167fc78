package generation

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Describer produces a textual description of an image.
type Describer interface {
	Describe(ctx context.Context, image *ImagePayload) (string, error)
}

// CannedDescriptions are the captions returned by CannedDescriber.
var CannedDescriptions = []string{
	"一幅美丽的风景画，包含山脉、湖泊和蓝天白云",
	"可爱的小动物在花园中玩耍，阳光明媚",
	"现代建筑物在城市天际线中闪闪发光",
	"抽象艺术作品，色彩丰富，充满创意",
	"自然风光，绿树成荫，鸟语花香",
}

// DefaultDescriptionDelay is the simulated latency of CannedDescriber.
const DefaultDescriptionDelay = 2 * time.Second

// CannedDescriber waits for a fixed delay and returns one of the canned
// descriptions.
type CannedDescriber struct {
	delay time.Duration
	pick  func(n int) int
}

// NewCannedDescriber creates a canned describer with the given delay.
func NewCannedDescriber(delay time.Duration) *CannedDescriber {
	return &CannedDescriber{delay: delay, pick: rand.IntN}
}

// Describe implements Describer.
func (d *CannedDescriber) Describe(ctx context.Context, image *ImagePayload) (string, error) {
	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return CannedDescriptions[d.pick(len(CannedDescriptions))], nil
	}
}

// Extractor runs description extraction for one session. Only one extraction
// is in flight at a time: starting a new one cancels the previous, which then
// returns ErrSuperseded.
type Extractor struct {
	describer Describer
	logger    *zap.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewExtractor creates an extractor backed by describer.
func NewExtractor(describer Describer, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		describer: describer,
		logger:    logger.Named("extractor"),
	}
}

// Extract describes image, superseding any extraction still in flight.
func (e *Extractor) Extract(ctx context.Context, image *ImagePayload) (string, error) {
	if image == nil || len(image.Data) == 0 {
		return "", newError(ErrorMissingImage, "no image to describe")
	}

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.seq++
	seq := e.seq
	e.cancel = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.seq == seq {
			e.cancel = nil
		}
		e.mu.Unlock()
		cancel()
	}()

	text, err := e.describer.Describe(ctx, image)

	e.mu.Lock()
	current := e.seq == seq
	e.mu.Unlock()
	if !current {
		e.logger.Debug("extraction superseded", zap.Uint64("seq", seq))
		return "", ErrSuperseded
	}
	if err != nil {
		if ctx.Err() != nil && !isDeadline(ctx) {
			return "", ctx.Err()
		}
		e.logger.Warn("description failed", zap.Error(err))
		return "", AsError(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", newError(ErrorBackendFailure, "describer returned an empty description")
	}
	return text, nil
}

// Cancel stops the extraction in flight, if any.
func (e *Extractor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.seq++
		e.cancel()
		e.cancel = nil
	}
}

func isDeadline(ctx context.Context) bool {
	return ctx.Err() == context.DeadlineExceeded
}
