package preload

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/localix/preloadd/pkg/fetch"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		return fetch.Priority(fl.Field().Int()).Valid()
	})
	return v
}

// Defaults for SchedulerConfig.
const (
	DefaultInitialDelay    = 2 * time.Second
	DefaultRefreshInterval = 5 * time.Minute
	DefaultCooldown        = 100 * time.Millisecond
)

// SchedulerConfig controls when the scheduler preloads.
type SchedulerConfig struct {
	// Enabled turns scheduled preloading on. Manual PreloadAll and
	// ForceRefresh work either way.
	Enabled bool

	// AutoRefresh runs a batch every RefreshInterval after the first one.
	AutoRefresh bool

	// InitialDelay is the wait before the first batch after start or
	// re-enable.
	InitialDelay time.Duration `validate:"gte=0"`

	// RefreshInterval is both the tick period and the staleness interval.
	RefreshInterval time.Duration `validate:"gt=0"`

	// Cooldown is the pause between successive requests in a batch.
	Cooldown time.Duration `validate:"gte=0"`

	// Priorities overrides the registered priority per resource key.
	Priorities map[string]fetch.Priority `validate:"dive,keys,required,endkeys,priority"`
}

// DefaultSchedulerConfig returns the stock configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:         true,
		AutoRefresh:     true,
		InitialDelay:    DefaultInitialDelay,
		RefreshInterval: DefaultRefreshInterval,
		Cooldown:        DefaultCooldown,
	}
}

// Validate checks the timing values and priority overrides. Failures wrap
// ErrInvalidConfig.
func (c SchedulerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				field := strings.TrimPrefix(fe.Namespace(), "SchedulerConfig.")
				if fe.Param() != "" {
					msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s' (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
				} else {
					msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (got %v)", field, fe.Tag(), fe.Value()))
				}
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c SchedulerConfig) clone() SchedulerConfig {
	out := c
	if c.Priorities != nil {
		out.Priorities = make(map[string]fetch.Priority, len(c.Priorities))
		for k, v := range c.Priorities {
			out.Priorities[k] = v
		}
	}
	return out
}

// ConfigPatch is a partial SchedulerConfig. Nil fields are left unchanged.
// Priorities entries are merged key by key.
type ConfigPatch struct {
	Enabled         *bool
	AutoRefresh     *bool
	InitialDelay    *time.Duration
	RefreshInterval *time.Duration
	Cooldown        *time.Duration
	Priorities      map[string]fetch.Priority
}

// IsEmpty reports whether the patch changes nothing.
func (p ConfigPatch) IsEmpty() bool {
	return p.Enabled == nil && p.AutoRefresh == nil && p.InitialDelay == nil &&
		p.RefreshInterval == nil && p.Cooldown == nil && len(p.Priorities) == 0
}

// apply returns c with p merged in.
func (p ConfigPatch) apply(c SchedulerConfig) SchedulerConfig {
	next := c.clone()
	if p.Enabled != nil {
		next.Enabled = *p.Enabled
	}
	if p.AutoRefresh != nil {
		next.AutoRefresh = *p.AutoRefresh
	}
	if p.InitialDelay != nil {
		next.InitialDelay = *p.InitialDelay
	}
	if p.RefreshInterval != nil {
		next.RefreshInterval = *p.RefreshInterval
	}
	if p.Cooldown != nil {
		next.Cooldown = *p.Cooldown
	}
	if len(p.Priorities) > 0 {
		if next.Priorities == nil {
			next.Priorities = make(map[string]fetch.Priority, len(p.Priorities))
		}
		for k, v := range p.Priorities {
			next.Priorities[k] = v
		}
	}
	return next
}

// timingChanged reports whether the ticker must be rebuilt.
func timingChanged(old, next SchedulerConfig) bool {
	return old.AutoRefresh != next.AutoRefresh || old.RefreshInterval != next.RefreshInterval
}
