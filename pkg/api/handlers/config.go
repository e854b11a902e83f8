package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/localix/preloadd/internal/logger"
	"github.com/localix/preloadd/pkg/fetch"
	"github.com/localix/preloadd/pkg/preload"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ConfigHandler reads and patches the running scheduler configuration.
// Patches apply to the running daemon only; the config file is unchanged.
type ConfigHandler struct {
	scheduler *preload.Scheduler
}

// NewConfigHandler creates a config handler.
func NewConfigHandler(scheduler *preload.Scheduler) *ConfigHandler {
	return &ConfigHandler{scheduler: scheduler}
}

// ConfigResponse is the wire form of preload.SchedulerConfig. Durations use
// Go duration syntax.
type ConfigResponse struct {
	Enabled         bool                      `json:"enabled"`
	AutoRefresh     bool                      `json:"auto_refresh"`
	InitialDelay    string                    `json:"initial_delay"`
	RefreshInterval string                    `json:"refresh_interval"`
	Cooldown        string                    `json:"cooldown"`
	Priorities      map[string]fetch.Priority `json:"priorities,omitempty"`
}

// ConfigPatchRequest is the body of PATCH /api/v1/config. Omitted fields are
// left unchanged.
type ConfigPatchRequest struct {
	Enabled         *bool             `json:"enabled,omitempty"`
	AutoRefresh     *bool             `json:"auto_refresh,omitempty"`
	InitialDelay    *string           `json:"initial_delay,omitempty" validate:"omitempty,min=1"`
	RefreshInterval *string           `json:"refresh_interval,omitempty" validate:"omitempty,min=1"`
	Cooldown        *string           `json:"cooldown,omitempty" validate:"omitempty,min=1"`
	Priorities      map[string]string `json:"priorities,omitempty" validate:"omitempty,dive,keys,required,endkeys,oneof=critical high medium low"`
}

func toConfigResponse(c preload.SchedulerConfig) ConfigResponse {
	return ConfigResponse{
		Enabled:         c.Enabled,
		AutoRefresh:     c.AutoRefresh,
		InitialDelay:    c.InitialDelay.String(),
		RefreshInterval: c.RefreshInterval.String(),
		Cooldown:        c.Cooldown.String(),
		Priorities:      c.Priorities,
	}
}

// Get handles GET /api/v1/config.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toConfigResponse(h.scheduler.Config()))
}

// Patch handles PATCH /api/v1/config.
func (h *ConfigHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var req ConfigPatchRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			InvalidConfig(w, formatValidationErrors(verrs))
			return
		}
		BadRequest(w, err.Error())
		return
	}

	patch, err := h.toPatch(req)
	if err != nil {
		InvalidConfig(w, err.Error())
		return
	}

	cfg, err := h.scheduler.UpdateConfig(patch)
	if err != nil {
		writeSchedulerError(w, err)
		return
	}

	logger.InfoCtx(r.Context(), "Scheduler configuration updated via API",
		"enabled", cfg.Enabled,
		"auto_refresh", cfg.AutoRefresh,
		logger.KeyInterval, cfg.RefreshInterval,
	)
	writeJSON(w, http.StatusOK, toConfigResponse(cfg))
}

func (h *ConfigHandler) toPatch(req ConfigPatchRequest) (preload.ConfigPatch, error) {
	patch := preload.ConfigPatch{
		Enabled:     req.Enabled,
		AutoRefresh: req.AutoRefresh,
	}

	var err error
	if patch.InitialDelay, err = parseDuration("initial_delay", req.InitialDelay); err != nil {
		return patch, err
	}
	if patch.RefreshInterval, err = parseDuration("refresh_interval", req.RefreshInterval); err != nil {
		return patch, err
	}
	if patch.Cooldown, err = parseDuration("cooldown", req.Cooldown); err != nil {
		return patch, err
	}

	if len(req.Priorities) > 0 {
		patch.Priorities = make(map[string]fetch.Priority, len(req.Priorities))
		for key, name := range req.Priorities {
			if !h.scheduler.Has(key) {
				return patch, fmt.Errorf("priorities: unknown resource %q", key)
			}
			p, err := fetch.ParsePriority(name)
			if err != nil {
				return patch, fmt.Errorf("priorities.%s: %w", key, err)
			}
			patch.Priorities[key] = p
		}
	}
	return patch, nil
}

func parseDuration(field string, s *string) (*time.Duration, error) {
	if s == nil {
		return nil, nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &d, nil
}

func formatValidationErrors(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "ConfigPatchRequest.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s' (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s'", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
