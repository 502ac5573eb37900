package auth

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/todo/internal/domain"
)

// hasher runs bcrypt work, optionally behind a bulkhead bounding how many
// hashes are computed at once.
type hasher struct {
	cost     int
	bulkhead bulkhead.Bulkhead[struct{}]
}

func newHasher(cost, maxConcurrent int) *hasher {
	h := &hasher{cost: cost}
	if maxConcurrent > 0 {
		h.bulkhead = bulkhead.New[struct{}](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 8,
			QueueTimeout:  10 * time.Second,
		})
	}
	return h
}

func (h *hasher) run(ctx context.Context, fn func()) error {
	if h.bulkhead == nil {
		fn()
		return nil
	}
	_, err := h.bulkhead.Execute(ctx, func(context.Context) (struct{}, error) {
		fn()
		return struct{}{}, nil
	})
	if err != nil {
		return domain.NewStorageError("acquire hashing slot", err)
	}
	return nil
}

// hash returns the bcrypt hash of password.
func (h *hasher) hash(ctx context.Context, password string) (string, error) {
	var (
		out     []byte
		hashErr error
	)
	if err := h.run(ctx, func() {
		out, hashErr = bcrypt.GenerateFromPassword([]byte(password), h.cost)
	}); err != nil {
		return "", err
	}
	if hashErr != nil {
		return "", hashErr
	}
	return string(out), nil
}

// matches reports whether password matches hash. A malformed hash never matches.
func (h *hasher) matches(ctx context.Context, hash, password string) (bool, error) {
	var cmpErr error
	if err := h.run(ctx, func() {
		cmpErr = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	}); err != nil {
		return false, err
	}
	return cmpErr == nil, nil
}
