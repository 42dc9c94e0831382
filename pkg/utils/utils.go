package utils

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
}

type utils struct {
	mu      sync.Mutex
	entropy io.Reader
}

func New() IUtils {
	return &utils{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)

	// ulid.Monotonic is not safe for concurrent use.
	u.mu.Lock()
	id, err := ulid.New(ms, u.entropy)
	u.mu.Unlock()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}
