package engine

import (
	crand "crypto/rand"
	"crypto/sha1"
	"encoding/binary"
	"math/rand"
	"time"

	"golang.org/x/exp/slices"
)

// Select picks exactly one move from legal, or reports false when legal is
// empty. Moves are long-algebraic strings ("e2e4", "a7a8q"). lastMove is
// the opponent's previous move in the same form, "" when there is none.
// prober may be nil when no tablebase is configured.
func Select(fen string, legal []string, lastMove string, opts *Options, prober Prober) (string, bool) {
	if len(legal) == 0 {
		return "", false
	}
	moves := append([]string(nil), legal...)
	slices.Sort(moves)

	candidates := filterCandidates(moves, lastMove, fen, opts, prober)
	if len(candidates) == 0 {
		// Every filter falls back to the unfiltered set.
		candidates = moves
	}

	p := newPicker(opts, fen)
	move := candidates[p.index(len(candidates))]
	if len(move) == 5 {
		move = resolvePromotion(move, moves, opts.Promotion, p)
	}
	return move, true
}

// filterCandidates narrows the sorted legal move list per the configured
// filter. A filter whose derived move is not legal returns the full list.
func filterCandidates(moves []string, lastMove, fen string, opts *Options, prober Prober) []string {
	switch opts.Filter {
	case FilterFirst:
		return moves[:1]
	case FilterLast:
		return moves[len(moves)-1:]
	case FilterMirror:
		if lastMove == "" {
			return moves
		}
		if m := MirrorMove(lastMove); slices.Contains(moves, m) {
			return []string{m}
		}
		return moves
	case FilterRotate:
		if lastMove == "" {
			return moves
		}
		if m := RotateMove(lastMove); slices.Contains(moves, m) {
			return []string{m}
		}
		return moves
	case FilterSyzygy:
		if prober == nil {
			return moves
		}
		if m, ok := prober.Probe(fen); ok && slices.Contains(moves, m) {
			return []string{m}
		}
		return moves
	}
	return moves
}

// MirrorMove reflects a long-algebraic move across the horizontal center
// of the board: rank r maps to 9-r, files are unchanged. A promotion
// suffix is preserved. Mirroring twice returns the original move.
func MirrorMove(m string) string {
	if len(m) < 4 {
		return m
	}
	b := []byte(m)
	b[1] = mirrorRank(b[1])
	b[3] = mirrorRank(b[3])
	return string(b)
}

// RotateMove rotates a long-algebraic move 180 degrees about the board
// center: both rank and file are mirrored. A promotion suffix is
// preserved. Rotating twice returns the original move.
func RotateMove(m string) string {
	if len(m) < 4 {
		return m
	}
	b := []byte(m)
	b[0] = mirrorFile(b[0])
	b[1] = mirrorRank(b[1])
	b[2] = mirrorFile(b[2])
	b[3] = mirrorRank(b[3])
	return string(b)
}

func mirrorRank(r byte) byte { return '1' + '8' - r }
func mirrorFile(f byte) byte { return 'a' + 'h' - f }

// resolvePromotion applies the promotion policy to an already chosen
// promotion move, re-selecting among the legal variants that share its
// from and to squares. A fixed piece whose variant is somehow not legal
// leaves the chosen move unchanged.
func resolvePromotion(move string, moves []string, policy Promotion, p picker) string {
	if policy == PromoteRandom {
		variants := promotionVariants(move, moves)
		if len(variants) > 1 {
			return variants[p.index(len(variants))]
		}
		return move
	}
	want := move[:4] + string(policy.Letter())
	if slices.Contains(moves, want) {
		return want
	}
	return move
}

// promotionVariants lists the legal promotion moves sharing from and to
// squares with move, in sorted order since moves is sorted.
func promotionVariants(move string, moves []string) []string {
	var variants []string
	for _, m := range moves {
		if len(m) == 5 && m[:4] == move[:4] {
			variants = append(variants, m)
		}
	}
	return variants
}

// picker yields indices either reproducibly from the position hash or from
// a freshly seeded random source. The same picker serves both the move
// pick and the promotion pick so determinism holds end to end.
type picker struct {
	hash uint32
	rng  *rand.Rand
}

func newPicker(opts *Options, fen string) picker {
	if opts.Deterministic {
		return picker{hash: positionHash(fen, opts.Seed)}
	}
	return picker{rng: newRand()}
}

func (p picker) index(n int) int {
	if n <= 1 {
		return 0
	}
	if p.rng != nil {
		return p.rng.Intn(n)
	}
	return int(p.hash % uint32(n))
}

// positionHash is the reproducible pick key: the SHA-1 of the FEN, with
// the seed appended after a space when present, read as a little-endian
// unsigned integer from the first four digest bytes.
func positionHash(fen, seed string) uint32 {
	s := fen
	if seed != "" {
		s = fen + " " + seed
	}
	sum := sha1.Sum([]byte(s))
	return binary.LittleEndian.Uint32(sum[:4])
}

// newRand seeds a generator from OS entropy, falling back to the clock if
// that fails.
func newRand() *rand.Rand {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
}
