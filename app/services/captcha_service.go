package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/torresguilherme/magic-qr-flows/utils"
	"github.com/wenlng/go-captcha/v2/rotate"
	"golang.org/x/image/draw"
)

// CaptchaService exposes methods to generate and verify captchas.
// This implementation uses the rotate captcha mode from go-captcha.
//
// Flow:
// - Generate: returns a challenge ID and two base64 images (master and thumb)
// - Verify: validates a user-provided angle against the stored target angle with tolerance
// - Challenges are consumed on the first verification attempt
type CaptchaService interface {
	GenerateRotate(ctx context.Context) (*RotateChallenge, error)
	VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool
}

type RotateChallenge struct {
	ID                string
	MasterImageBase64 string
	ThumbImageBase64  string
}

// ChallengeStore keeps the expected angle of outstanding challenges.
type ChallengeStore interface {
	Put(ctx context.Context, id string, targetAngle int, ttl time.Duration) error
	// Take returns and removes the entry
	Take(ctx context.Context, id string) (int, bool, error)
}

type captchaServiceImpl struct {
	rotator rotate.Captcha
	store   ChallengeStore
	ttl     time.Duration
	padding int // tolerance for angle validation
}

// NewCaptchaServiceRotate constructs a CaptchaService using rotate mode
// ttl: time window during which a challenge remains valid
// padding: acceptable angle difference (degrees) when validating
// imgSizePx: square size for generated images (e.g., 220)
func NewCaptchaServiceRotate(store ChallengeStore, ttl time.Duration, padding int, imgSizePx int) (CaptchaService, error) {
	if store == nil {
		return nil, errors.New("captcha challenge store is required")
	}
	if imgSizePx <= 0 {
		imgSizePx = 220
	}
	if ttl <= 0 {
		ttl = utils.CaptchaTTL
	}

	builder := rotate.NewBuilder(
		rotate.WithImageSquareSize(imgSizePx),
	)
	builder.SetResources(
		rotate.WithImages(generateRotateBackgrounds(3, imgSizePx)),
	)

	return &captchaServiceImpl{
		rotator: builder.Make(),
		store:   store,
		ttl:     ttl,
		padding: padding,
	}, nil
}

func (s *captchaServiceImpl) GenerateRotate(ctx context.Context) (*RotateChallenge, error) {
	captData, err := s.rotator.Generate()
	if err != nil {
		return nil, err
	}

	block := captData.GetData()
	if block == nil {
		return nil, errors.New("captcha generator returned no data")
	}

	masterB64, err := captData.GetMasterImage().ToBase64()
	if err != nil {
		return nil, err
	}
	thumbB64, err := captData.GetThumbImage().ToBase64()
	if err != nil {
		return nil, err
	}

	challengeID := uuid.New().String()
	if err := s.store.Put(ctx, challengeID, block.Angle, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store captcha challenge: %w", err)
	}

	return &RotateChallenge{
		ID:                challengeID,
		MasterImageBase64: masterB64,
		ThumbImageBase64:  thumbB64,
	}, nil
}

func (s *captchaServiceImpl) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	if challengeID == "" {
		return false
	}

	target, ok, err := s.store.Take(ctx, challengeID)
	if err != nil || !ok {
		return false
	}

	// Round user-provided angle to integer degrees expected by validator
	return rotate.Validate(int(math.Round(userAngle)), target, s.padding)
}

// RedisChallengeStore shares challenges across instances.
type RedisChallengeStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisChallengeStore(client redis.UniversalClient, prefix string) *RedisChallengeStore {
	return &RedisChallengeStore{client: client, prefix: prefix}
}

func (s *RedisChallengeStore) key(id string) string {
	return fmt.Sprintf("%s:captcha:%s", s.prefix, id)
}

func (s *RedisChallengeStore) Put(ctx context.Context, id string, targetAngle int, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(id), targetAngle, ttl).Err()
}

func (s *RedisChallengeStore) Take(ctx context.Context, id string) (int, bool, error) {
	raw, err := s.client.GetDel(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	angle, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt captcha entry %s: %w", id, err)
	}
	return angle, true, nil
}

// --- In-memory store with TTL ---

type storeEntry struct {
	targetAngle int
	expiresAt   time.Time
}

type MemoryChallengeStore struct {
	mu sync.Mutex
	m  map[string]storeEntry
}

// NewMemoryChallengeStore returns a process-local store; expired entries are swept until ctx is done.
func NewMemoryChallengeStore(ctx context.Context) *MemoryChallengeStore {
	ms := &MemoryChallengeStore{m: make(map[string]storeEntry)}
	go ms.cleanupLoop(ctx)
	return ms
}

func (s *MemoryChallengeStore) Put(_ context.Context, id string, targetAngle int, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = storeEntry{targetAngle: targetAngle, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryChallengeStore) Take(_ context.Context, id string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[id]
	if !ok {
		return 0, false, nil
	}
	delete(s.m, id)
	if time.Now().After(e.expiresAt) {
		return 0, false, nil
	}
	return e.targetAngle, true, nil
}

func (s *MemoryChallengeStore) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for k, v := range s.m {
				if now.After(v.expiresAt) {
					delete(s.m, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

// --- Utility: generate simple background images programmatically ---

func generateRotateBackgrounds(n int, size int) []image.Image {
	if n <= 0 {
		n = 1
	}
	imgs := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		imgs = append(imgs, newNoiseGradientImage(size, size))
	}
	return imgs
}

func newNoiseGradientImage(w, h int) image.Image {
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// radial gradient + noise
			dx := float64(x - w/2)
			dy := float64(y - h/2)
			t := math.Sqrt(dx*dx+dy*dy) / float64(w/2)
			if t > 1 {
				t = 1
			}
			base := uint8(200 - int(150*t))
			noise := uint8(rand.Intn(30))
			rgba.Set(x, y, color.RGBA{R: base + noise/3, G: base, B: 255 - base/2, A: 255})
		}
	}
	drawRect(rgba, 10, 10, w/3, h/12, color.RGBA{R: 255, G: 255, B: 255, A: 32})
	drawRect(rgba, w/2, h/3, w/3, h/10, color.RGBA{R: 0, G: 0, B: 0, A: 24})
	return rgba
}

func drawRect(dst *image.RGBA, x, y, w, h int, c color.RGBA) {
	rect := image.Rect(x, y, x+w, y+h)
	draw.Draw(dst, rect, &image.Uniform{C: c}, image.Point{}, draw.Over)
}
