package client

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"candle-stream/src/helpers"
	"candle-stream/src/interfaces"
	"candle-stream/src/models"

	"github.com/go-playground/validator/v10"
)

// Timezone offsets are minutes east of UTC.
const (
	minTimezoneOffset = -12 * 60
	maxTimezoneOffset = 14 * 60
)

var preferenceDefaults = map[string]string{
	models.StateKeyTheme:      "light",
	models.StateKeyTimezone:   "0",
	models.StateKeyIndicators: "[]",
}

// -----------------------------------------------------------------------------

// Preferences caches the persisted display settings: theme, timezone offset
// and indicator overlays. Every Set is written through to the state store.
type Preferences struct {
	State    interfaces.IStateStore
	validate *validator.Validate
	mu       sync.RWMutex
	values   map[string]string
}

func NewPreferences(state interfaces.IStateStore) *Preferences {
	return &Preferences{
		State:    state,
		validate: validator.New(),
		values:   make(map[string]string),
	}
}

// -----------------------------------------------------------------------------

// Load reads the stored preferences once. Unknown keys are ignored and
// invalid stored values fall back to the defaults.
func (p *Preferences) Load() error {
	stored, err := p.State.All()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for key := range preferenceDefaults {
		raw, ok := stored[key]
		if !ok {
			continue
		}
		if _, err := p.normalize(key, raw); err == nil {
			p.values[key] = raw
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// Set validates and stores one preference.
func (p *Preferences) Set(key, value string) error {
	normalized, err := p.normalize(key, value)
	if err != nil {
		return err
	}
	if err := p.State.Set(key, normalized); err != nil {
		return err
	}

	p.mu.Lock()
	p.values[key] = normalized
	p.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

// All returns every preference, defaults filled in.
func (p *Preferences) All() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]string, len(preferenceDefaults))
	for k, v := range preferenceDefaults {
		out[k] = v
	}
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// -----------------------------------------------------------------------------

func (p *Preferences) Theme() string {
	return p.All()[models.StateKeyTheme]
}

// TimezoneOffset returns the display offset in minutes east of UTC.
func (p *Preferences) TimezoneOffset() int {
	n, _ := strconv.Atoi(p.All()[models.StateKeyTimezone])
	return n
}

// Indicators returns the configured overlays.
func (p *Preferences) Indicators() []models.MIndicatorConfig {
	var list []models.MIndicatorConfig
	_ = json.Unmarshal([]byte(p.All()[models.StateKeyIndicators]), &list)
	return list
}

// -----------------------------------------------------------------------------

// normalize checks a value for its key and returns its stored form.
func (p *Preferences) normalize(key, value string) (string, error) {
	switch key {
	case models.StateKeyTheme:
		if value != "light" && value != "dark" {
			return "", helpers.NewValidationError("theme must be light or dark")
		}
		return value, nil

	case models.StateKeyTimezone:
		n, err := strconv.Atoi(value)
		if err != nil || n < minTimezoneOffset || n > maxTimezoneOffset {
			return "", helpers.NewValidationError("timezone must be an offset in minutes between %d and %d", minTimezoneOffset, maxTimezoneOffset)
		}
		return strconv.Itoa(n), nil

	case models.StateKeyIndicators:
		var list []models.MIndicatorConfig
		if err := json.Unmarshal([]byte(value), &list); err != nil {
			return "", helpers.NewValidationError("indicators must be a JSON array: %v", err)
		}
		for i := range list {
			if err := p.validate.Struct(list[i]); err != nil {
				return "", helpers.NewValidationError("indicator %d: %v", i, err)
			}
		}
		if list == nil {
			list = []models.MIndicatorConfig{}
		}
		data, err := json.Marshal(list)
		if err != nil {
			return "", err
		}
		return string(data), nil

	default:
		return "", helpers.NewValidationError("unknown preference %q", key)
	}
}

// String is used by status logging.
func (p *Preferences) String() string {
	return fmt.Sprintf("theme=%s timezone=%d indicators=%d", p.Theme(), p.TimezoneOffset(), len(p.Indicators()))
}
