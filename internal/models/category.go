package models

import "strings"

// Category is one of the four bed categories of the hut.
type Category int

const (
	Sonder Category = iota
	Lager
	Betten
	DZ
)

// Categories lists all categories in reporting order.
var Categories = []Category{Sonder, Lager, Betten, DZ}

func (c Category) String() string {
	switch c {
	case Sonder:
		return "Sonder"
	case Lager:
		return "Lager"
	case Betten:
		return "Betten"
	case DZ:
		return "DZ"
	default:
		return "unknown"
	}
}

// Key is the lower-case name used in JSON payloads and metric labels.
func (c Category) Key() string {
	return strings.ToLower(c.String())
}

// HRS category type codes.
const (
	CodeSonder = "SK"
	CodeLager  = "ML"
	CodeBetten = "MBZ"
	CodeDZ     = "2BZ"
)

var hrsCategoryCodes = map[string]Category{
	CodeSonder: Sonder,
	CodeLager:  Lager,
	CodeBetten: Betten,
	CodeDZ:     DZ,
}

// CategoryForCode maps an HRS category type code to a category.
// Unknown codes report ok=false and must be ignored by the caller.
func CategoryForCode(code string) (Category, bool) {
	c, ok := hrsCategoryCodes[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// CodeForCategory returns the HRS type code of a category.
func CodeForCategory(c Category) string {
	switch c {
	case Sonder:
		return CodeSonder
	case Lager:
		return CodeLager
	case Betten:
		return CodeBetten
	case DZ:
		return CodeDZ
	}
	return ""
}

// Beds holds one number per category.
type Beds struct {
	Sonder int `json:"sonder"`
	Lager  int `json:"lager"`
	Betten int `json:"betten"`
	DZ     int `json:"dz"`
}

// Get returns the value for a category.
func (b Beds) Get(c Category) int {
	switch c {
	case Sonder:
		return b.Sonder
	case Lager:
		return b.Lager
	case Betten:
		return b.Betten
	case DZ:
		return b.DZ
	}
	return 0
}

// Set stores the value for a category.
func (b *Beds) Set(c Category, n int) {
	switch c {
	case Sonder:
		b.Sonder = n
	case Lager:
		b.Lager = n
	case Betten:
		b.Betten = n
	case DZ:
		b.DZ = n
	}
}

func (b Beds) Add(o Beds) Beds {
	return Beds{
		Sonder: b.Sonder + o.Sonder,
		Lager:  b.Lager + o.Lager,
		Betten: b.Betten + o.Betten,
		DZ:     b.DZ + o.DZ,
	}
}

func (b Beds) Sub(o Beds) Beds {
	return Beds{
		Sonder: b.Sonder - o.Sonder,
		Lager:  b.Lager - o.Lager,
		Betten: b.Betten - o.Betten,
		DZ:     b.DZ - o.DZ,
	}
}

// Total sums all four categories.
func (b Beds) Total() int {
	return b.Sonder + b.Lager + b.Betten + b.DZ
}

func (b Beds) IsZero() bool {
	return b == Beds{}
}

// HasNegative reports whether any category is below zero.
func (b Beds) HasNegative() bool {
	return b.Sonder < 0 || b.Lager < 0 || b.Betten < 0 || b.DZ < 0
}
