package domain

import (
	"cmp"
	"slices"
	"time"
)

// Source is the address of one sensor endpoint. It doubles as the label value of its gauges.
type Source string

// Reading is one decoded observation returned by a sensor.
type Reading struct {
	Timestamp time.Time
	Score     float64
	Temp      float64
	Humid     float64
	CO2       float64
	VOC       float64
	PM25      float64
}

// GaugeDesc names one gauge tracked per source and how to pull its value out of a Reading.
// FQName and Label, when set, replace the exported metric name and the source label name.
type GaugeDesc struct {
	Value  func(Reading) float64
	Name   string
	Help   string
	FQName string
	Label  string
}

// AwairGauges is the default catalog for the Awair Local API air-data payload.
var AwairGauges = []GaugeDesc{
	{Name: "score", Help: "Current Awair Score", Value: func(r Reading) float64 { return r.Score }},
	{Name: "temp", Help: "Current temperature in celcius", Value: func(r Reading) float64 { return r.Temp }},
	{Name: "humidity", Help: "Current relative humidity", Value: func(r Reading) float64 { return r.Humid }},
	{Name: "co2", Help: "Current CO2 measurement in parts per million", Value: func(r Reading) float64 { return r.CO2 }},
	{Name: "voc", Help: "Current Volatile Organic Compound measurement in parts per billion", Value: func(r Reading) float64 { return r.VOC }},
	{Name: "pm25", Help: "Current concentration of 2.5 micron particles in micrograms per meter cubed", Value: func(r Reading) float64 { return r.PM25 }},
}

// Entry is the latest value held for one (metric, source) pair.
type Entry struct {
	Metric string
	Source Source
	Value  float64
}

// Snapshot is a point-in-time copy of every entry in the store.
type Snapshot struct {
	Entries []Entry
}

// SortEntries orders entries by metric name, then by source.
func SortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(a.Metric, b.Metric); c != 0 {
			return c
		}
		return cmp.Compare(a.Source, b.Source)
	})
}

// SourceResult is the outcome of polling one source during a cycle.
type SourceResult struct {
	Err     error
	Reading *Reading
	Source  Source
}

// Cycle summarizes one pass of the refresh loop over every source.
type Cycle struct {
	Started  time.Time
	Finished time.Time
	Results  []SourceResult
}

// Failed returns the number of sources that could not be polled.
func (c Cycle) Failed() int {
	n := 0
	for _, r := range c.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
