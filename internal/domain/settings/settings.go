package settings

import (
	"context"
	"errors"
	"time"
)

const KeyGracePeriodMinutes = "grace_period_minutes"

var ErrSettingNotFound = errors.New("Setting not found")

type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Repository - interface for settings table
type Repository interface {
	Get(ctx context.Context, key string) (Setting, error)
	Set(ctx context.Context, key, value string) error
}
