package models

// InstrumentName is the human readable instrument key, e.g. "EUR/USD".
type InstrumentName string

// MInstrument maps an instrument name to the opaque id the historical feed expects.
type MInstrument struct {
	Name string `yaml:"name" json:"name"`
	ID   string `yaml:"id" json:"id"`
}
