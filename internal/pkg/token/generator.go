// Package token generates the short public identifiers handed out for exams.
//
// A token is the first Length hex characters of a SHA3-256 digest over the exam name and its
// reserved id. Collisions are resolved by re-hashing with an attempt counter appended, so every
// retry produces a fresh candidate. The number of attempts is bounded.
package token

import (
	"context"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"

	"github.com/yigit/gradingdb/internal/pkg/apperrors"
	"github.com/yigit/gradingdb/internal/pkg/logger"
	"golang.org/x/crypto/sha3"
)

const (
	// Length is the number of hex characters in an exam token
	Length = 12
	// DefaultMaxAttempts bounds the regeneration loop when no limit is configured
	DefaultMaxAttempts = 5
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{12}$`)

// ClaimFunc tries to take ownership of a candidate token. It reports false when the candidate
// is already held by another exam. Any error aborts generation.
type ClaimFunc func(ctx context.Context, candidate string) (bool, error)

// Generator produces collision-free exam tokens
type Generator struct {
	maxAttempts int
}

// NewGenerator creates a Generator that gives up after maxAttempts collisions
func NewGenerator(maxAttempts int) *Generator {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{maxAttempts: maxAttempts}
}

// MaxAttempts returns the configured attempt limit
func (g *Generator) MaxAttempts() int {
	return g.maxAttempts
}

// Seed builds the hash input for an exam. The id must already be reserved.
func Seed(examName string, examID int64) string {
	return examName + ":" + strconv.FormatInt(examID, 10)
}

// Candidate returns the token candidate for a seed on the given zero-based attempt
func Candidate(seed string, attempt int) string {
	input := seed
	if attempt > 0 {
		input = seed + "#" + strconv.Itoa(attempt)
	}
	digest := sha3.Sum256([]byte(input))
	return hex.EncodeToString(digest[:])[:Length]
}

// Generate returns the first candidate for seed that claim accepts
func (g *Generator) Generate(ctx context.Context, seed string, claim ClaimFunc) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate := Candidate(seed, attempt)
		ok, err := claim(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to claim exam token: %w", err)
		}
		if ok {
			return candidate, nil
		}

		logger.Warn().Str("token", candidate).Int("attempt", attempt+1).Msg("Exam token collision, regenerating")
	}

	logger.Error().Str("seed", seed).Int("attempts", g.maxAttempts).Msg("Exam token generation exhausted")
	return "", fmt.Errorf("%w: no free token after %d attempts", apperrors.ErrTokenSpaceExhausted, g.maxAttempts)
}

// Valid reports whether s has the shape of an exam token
func Valid(s string) bool {
	return tokenPattern.MatchString(s)
}
