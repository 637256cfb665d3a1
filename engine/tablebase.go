package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
)

// Prober looks up a tablebase-optimal move for a position given by FEN.
// ok is false whenever no move could be produced, whatever the cause; the
// caller treats every failure the same way and falls back to the
// unfiltered move set.
type Prober interface {
	Probe(fen string) (move string, ok bool)
}

// DefaultProberBinary is the helper engine consulted for syzygy probes.
// It must be on PATH and understand the SyzygyPath option.
const DefaultProberBinary = "stockfish"

// UCIProber answers probes by asking a helper UCI engine that has the
// tablebase directory configured.
type UCIProber struct {
	eng *uci.Engine
}

// NewSyzygyProber validates the tablebase directory and starts the helper
// engine with SyzygyPath pointing at it.
func NewSyzygyProber(binary, path string) (*UCIProber, error) {
	if err := validateSyzygyPath(path); err != nil {
		return nil, err
	}
	eng, err := uci.New(binary)
	if err != nil {
		return nil, err
	}
	setup := []uci.Cmd{
		uci.CmdUCI,
		uci.CmdSetOption{Name: "SyzygyPath", Value: path},
		uci.CmdIsReady,
		uci.CmdUCINewGame,
	}
	if err := eng.Run(setup...); err != nil {
		eng.Close()
		return nil, err
	}
	return &UCIProber{eng: eng}, nil
}

// Probe asks the helper engine for its move in the given position. A
// shallow search suffices since tablebase hits override it.
func (p *UCIProber) Probe(fen string) (string, bool) {
	fenOpt, err := chess.FEN(fen)
	if err != nil {
		return "", false
	}
	game := chess.NewGame(fenOpt)
	cmds := []uci.Cmd{
		uci.CmdPosition{Position: game.Position()},
		uci.CmdGo{Depth: 1},
	}
	if err := p.eng.Run(cmds...); err != nil {
		return "", false
	}
	best := p.eng.SearchResults().BestMove
	if best == nil {
		return "", false
	}
	return best.String(), true
}

// Close shuts the helper engine down.
func (p *UCIProber) Close() {
	if p.eng != nil {
		p.eng.Close()
	}
}

// validateSyzygyPath requires an existing directory holding at least the
// KRvK wdl table, the smallest file every syzygy set contains.
func validateSyzygyPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("syzygy path %q is not a directory", path)
	}
	if _, err := os.Stat(filepath.Join(path, "KRvK.rtbw")); err != nil {
		return fmt.Errorf("syzygy path %q does not contain KRvK.rtbw", path)
	}
	return nil
}
