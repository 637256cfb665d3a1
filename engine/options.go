package engine

import (
	"fmt"
	"strings"
)

// Filter names the move-set filter applied before the final pick.
type Filter int

const (
	FilterNone Filter = iota
	FilterFirst
	FilterLast
	FilterMirror
	FilterRotate
	FilterSyzygy
)

var filterNames = [...]string{"none", "first", "last", "mirror", "rotate", "syzygy"}

func (f Filter) String() string { return filterNames[f] }

// ParseFilter converts a filter name to its Filter constant.
func ParseFilter(s string) (Filter, error) {
	for i, name := range filterNames {
		if name == s {
			return Filter(i), nil
		}
	}
	return FilterNone, fmt.Errorf("unknown filter %q", s)
}

// Promotion names the policy for resolving the promotion piece of a
// selected pawn-promotion move.
type Promotion int

const (
	PromoteRandom Promotion = iota
	PromoteKnight
	PromoteBishop
	PromoteRook
	PromoteQueen
)

var promotionNames = [...]string{"random", "knight", "bishop", "rook", "queen"}

func (p Promotion) String() string { return promotionNames[p] }

// ParsePromotion converts a promotion policy name to its Promotion constant.
func ParsePromotion(s string) (Promotion, error) {
	for i, name := range promotionNames {
		if name == s {
			return Promotion(i), nil
		}
	}
	return PromoteRandom, fmt.Errorf("unknown promotion policy %q", s)
}

// Letter returns the long-algebraic suffix for a fixed promotion piece,
// or 0 for PromoteRandom.
func (p Promotion) Letter() byte {
	switch p {
	case PromoteKnight:
		return 'n'
	case PromoteBishop:
		return 'b'
	case PromoteRook:
		return 'r'
	case PromoteQueen:
		return 'q'
	}
	return 0
}

// Options holds the session configuration read on every selection. The
// zero value carries the declared defaults.
type Options struct {
	Deterministic bool
	Filter        Filter
	Promotion     Promotion
	Seed          string
	SyzygyPath    string
}

// Set validates and applies a single setoption assignment. Names are
// case-insensitive; values must lie in the option's declared domain. On
// error the previous value is retained, so the caller can simply drop the
// command.
func (o *Options) Set(name, value string) error {
	// GUIs use "<empty>" to clear a string option.
	if value == "<empty>" {
		value = ""
	}
	switch strings.ToLower(name) {
	case "deterministic":
		switch strings.ToLower(value) {
		case "true":
			o.Deterministic = true
		case "false":
			o.Deterministic = false
		default:
			return fmt.Errorf("deterministic wants true or false, got %q", value)
		}
	case "filter":
		f, err := ParseFilter(strings.ToLower(value))
		if err != nil {
			return err
		}
		o.Filter = f
	case "promotion":
		p, err := ParsePromotion(strings.ToLower(value))
		if err != nil {
			return err
		}
		o.Promotion = p
	case "seed":
		o.Seed = value
	case "syzygypath":
		// Paths keep the exact case of the value.
		o.SyzygyPath = value
	default:
		return fmt.Errorf("unknown option %q", name)
	}
	return nil
}
