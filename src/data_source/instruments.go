package datasource

import (
	"strings"

	"candle-stream/src/helpers"
	"candle-stream/src/models"
)

// InstrumentRegistry is the typed set of instruments the server knows about.
// Lookups outside the set fail with an UnknownInstrumentError.
type InstrumentRegistry struct {
	byName map[models.InstrumentName]models.MInstrument
	order  []models.InstrumentName
}

// -----------------------------------------------------------------------------

func NewInstrumentRegistry(instruments []models.MInstrument) *InstrumentRegistry {
	r := &InstrumentRegistry{
		byName: make(map[models.InstrumentName]models.MInstrument, len(instruments)),
	}
	for _, inst := range instruments {
		name := models.InstrumentName(inst.Name)
		if _, dup := r.byName[name]; dup {
			continue
		}
		r.byName[name] = inst
		r.order = append(r.order, name)
	}
	return r
}

// -----------------------------------------------------------------------------

// Lookup resolves a human readable name such as "EUR/USD".
func (r *InstrumentRegistry) Lookup(name string) (models.MInstrument, error) {
	inst, ok := r.byName[models.InstrumentName(name)]
	if !ok {
		return models.MInstrument{}, helpers.NewUnknownInstrumentError(name)
	}
	return inst, nil
}

// -----------------------------------------------------------------------------

// Names returns instrument names in configuration order.
func (r *InstrumentRegistry) Names() []string {
	names := make([]string, len(r.order))
	for i, n := range r.order {
		names[i] = string(n)
	}
	return names
}

// -----------------------------------------------------------------------------

// Instruments returns the configured instruments in order.
func (r *InstrumentRegistry) Instruments() []models.MInstrument {
	list := make([]models.MInstrument, len(r.order))
	for i, n := range r.order {
		list[i] = r.byName[n]
	}
	return list
}

// -----------------------------------------------------------------------------

// ParseCSV splits a comma separated instrument list, drops blanks and
// duplicates, and validates every entry against the registry.
func (r *InstrumentRegistry) ParseCSV(csv string) ([]string, error) {
	names := SplitCSV(csv)
	if len(names) == 0 {
		return nil, helpers.NewValidationError("instruments must not be empty")
	}
	for _, n := range names {
		if _, err := r.Lookup(n); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// -----------------------------------------------------------------------------

// SplitCSV splits and trims a comma separated list, keeping first occurrences only.
func SplitCSV(csv string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
