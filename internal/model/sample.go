package model

import "time"

// CustomerClass is the rate-class category a load profile segment belongs to.
type CustomerClass string

const (
	ClassResidential CustomerClass = "residential"
	ClassCommercial  CustomerClass = "commercial"
	ClassIndustrial  CustomerClass = "industrial"
	ClassLighting    CustomerClass = "lighting"
)

// SizeBand segments customers within a class by usage size.
type SizeBand string

const (
	SizeSmall  SizeBand = "small"
	SizeMedium SizeBand = "medium"
	SizeLarge  SizeBand = "large"
	SizeNone   SizeBand = "none" // segments without a size split, e.g. street lighting
)

// LoadSample is one normalized hourly observation: the average load (kW)
// for a customer class and size band during a single hour.
type LoadSample struct {
	Timestamp time.Time     `json:"timestamp"` // hour resolution
	LDC       string        `json:"ldc"`
	Segment   string        `json:"segment"` // provider segment code, e.g. "MDDGL"
	Class     CustomerClass `json:"class"`
	SizeBand  SizeBand      `json:"sizeBand"`
	KW        float64       `json:"kw"`
}

// LDCStates maps the three character LDC code to its state abbreviation,
// used to build archive URLs.
var LDCStates = map[string]string{
	"CNM": "MD",
	"CND": "DE",
	"CNV": "VA",
}

// DefaultLDCs are the distribution companies fetched when a job names none.
var DefaultLDCs = []string{"CND", "CNM"}
