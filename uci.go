package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dylhunn/dragontoothmg"
	"github.com/rs/zerolog"

	"random-uci/engine"
)

const (
	engineName   = "random-uci 0.9.0"
	engineAuthor = "random-uci developers"
)

// sessionState tracks where the protocol conversation is.
type sessionState int

const (
	stateIdle sessionState = iota
	stateReady
	statePositionSet
)

type session struct {
	in  io.Reader
	out io.Writer
	log zerolog.Logger

	state   sessionState
	board   dragontoothmg.Board
	history []string
	opts    engine.Options

	prober     *engine.UCIProber
	proberPath string // last path a prober start was attempted for
}

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	s := newSession(os.Stdin, os.Stdout, logger)
	s.loop()
}

func newSession(in io.Reader, out io.Writer, log zerolog.Logger) *session {
	return &session{
		in:    in,
		out:   out,
		log:   log,
		board: dragontoothmg.ParseFen(dragontoothmg.Startpos),
	}
}

// loop reads one command line at a time and fully answers it before
// reading the next. EOF on the input stream ends the session like quit.
func (s *session) loop() {
	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		line := scanner.Text()
		tokens := strings.Fields(line)
		if len(tokens) == 0 { // ignore blank lines
			continue
		}
		switch strings.ToLower(tokens[0]) {
		case "uci":
			s.cmdUci()
		case "isready":
			fmt.Fprintln(s.out, "readyok")
		case "setoption":
			s.cmdSetOption(tokens)
		case "ucinewgame":
			s.cmdNewGame()
		case "position":
			s.cmdPosition(tokens)
		case "go":
			s.cmdGo()
		case "stop":
			// nothing is ever searching, but GUIs send it speculatively
		case "print":
			s.cmdPrint()
		case "quit":
			s.close()
			return
		default:
			fmt.Fprintln(s.out, "info string Unknown command:", line)
		}
	}
	s.close()
}

func (s *session) cmdUci() {
	fmt.Fprintln(s.out, "id name", engineName)
	fmt.Fprintln(s.out, "id author", engineAuthor)
	fmt.Fprintln(s.out, "option name Deterministic type check default false")
	fmt.Fprintln(s.out, "option name Filter type combo default none var none var first var last var mirror var rotate var syzygy")
	fmt.Fprintln(s.out, "option name Promotion type combo default random var random var knight var bishop var rook var queen")
	fmt.Fprintln(s.out, "option name Seed type string default <empty>")
	fmt.Fprintln(s.out, "option name SyzygyPath type string default <empty>")
	fmt.Fprintln(s.out, "uciok")
	s.state = stateReady
}

func (s *session) cmdSetOption(tokens []string) {
	name, value, ok := splitOption(tokens)
	if !ok {
		s.log.Debug().Strs("tokens", tokens).Msg("malformed setoption")
		return
	}
	if err := s.opts.Set(name, value); err != nil {
		s.log.Debug().Err(err).Str("name", name).Str("value", value).Msg("setoption rejected")
		return
	}
	if strings.EqualFold(name, "syzygypath") {
		// Force the prober to restart against the new path.
		s.dropProber()
	}
}

// splitOption pulls the name and value out of a setoption token list. The
// value may contain spaces; the name of every declared option does not,
// but multi-word names are joined anyway so they fail validation cleanly.
func splitOption(tokens []string) (name, value string, ok bool) {
	if len(tokens) < 3 || strings.ToLower(tokens[1]) != "name" {
		return "", "", false
	}
	i := 2
	for ; i < len(tokens) && strings.ToLower(tokens[i]) != "value"; i++ {
	}
	name = strings.Join(tokens[2:i], " ")
	if name == "" {
		return "", "", false
	}
	if i < len(tokens) {
		value = strings.Join(tokens[i+1:], " ")
	}
	return name, value, true
}

func (s *session) cmdNewGame() {
	s.board = dragontoothmg.ParseFen(dragontoothmg.Startpos)
	s.history = nil
	s.state = stateReady
}

func (s *session) cmdPosition(tokens []string) {
	board, history, err := buildPosition(tokens)
	if err != nil {
		fmt.Fprintln(s.out, "info string", err)
		s.log.Debug().Err(err).Msg("position rejected")
		return
	}
	s.board = *board
	s.history = history
	s.state = statePositionSet
}

// buildPosition constructs the position a "position" command describes,
// replaying any listed moves. The session position is never touched; a
// single bad token rejects the whole command.
func buildPosition(tokens []string) (*dragontoothmg.Board, []string, error) {
	if len(tokens) < 2 {
		return nil, nil, errors.New("malformed position command")
	}
	movesAt := len(tokens)
	for i := 1; i < len(tokens); i++ {
		if strings.ToLower(tokens[i]) == "moves" {
			movesAt = i
			break
		}
	}
	var fen string
	switch strings.ToLower(tokens[1]) {
	case "startpos":
		fen = dragontoothmg.Startpos
	case "fen":
		if movesAt <= 2 {
			return nil, nil, errors.New("position fen missing fen fields")
		}
		fen = strings.Join(tokens[2:movesAt], " ")
	default:
		return nil, nil, fmt.Errorf("invalid position subcommand %q", tokens[1])
	}
	board, err := parseFen(fen)
	if err != nil {
		return nil, nil, err
	}
	var history []string
	if movesAt < len(tokens) {
		for _, moveStr := range tokens[movesAt+1:] {
			moveStr = strings.ToLower(moveStr)
			if err := applyMove(board, moveStr); err != nil {
				return nil, nil, err
			}
			history = append(history, moveStr)
		}
	}
	return board, history, nil
}

// parseFen wraps dragontoothmg.ParseFen, which panics on malformed input.
func parseFen(fen string) (board *dragontoothmg.Board, err error) {
	defer func() {
		if r := recover(); r != nil {
			board = nil
			err = fmt.Errorf("invalid fen %q", fen)
		}
	}()
	b := dragontoothmg.ParseFen(fen)
	return &b, nil
}

// applyMove finds moveStr among the legal moves of board and applies it.
// Castling can arrive in a form whose string differs from the generated
// move, so a parsed from/to/promotion comparison backs up the direct
// string match.
func applyMove(board *dragontoothmg.Board, moveStr string) error {
	legalMoves := board.GenerateLegalMoves()
	for _, mv := range legalMoves {
		if mv.String() == moveStr {
			board.Apply(mv)
			return nil
		}
	}
	parsed, err := dragontoothmg.ParseMove(moveStr)
	if err != nil {
		return fmt.Errorf("unparseable move %q", moveStr)
	}
	for _, mv := range legalMoves {
		if mv.From() == parsed.From() && mv.To() == parsed.To() && mv.Promote() == parsed.Promote() {
			board.Apply(mv)
			return nil
		}
	}
	return fmt.Errorf("illegal move %q in position %s", moveStr, board.ToFen())
}

// cmdGo answers with a selected move. All search parameters (depth, time,
// nodes, ...) are accepted and ignored; nothing here searches.
func (s *session) cmdGo() {
	if s.state != statePositionSet {
		// Legal: the board defaults to the standard starting position.
		s.log.Debug().Msg("go without a position command")
	}
	legalMoves := s.board.GenerateLegalMoves()
	legal := make([]string, 0, len(legalMoves))
	for _, mv := range legalMoves {
		legal = append(legal, mv.String())
	}

	move, ok := engine.Select(s.board.ToFen(), legal, s.lastMove(), &s.opts, s.currentProber())
	if !ok {
		fmt.Fprintln(s.out, "info string no legal moves")
		return
	}
	if err := applyMove(&s.board, move); err != nil {
		// Select only returns members of the legal set.
		s.log.Error().Err(err).Str("move", move).Msg("could not apply selected move")
		return
	}
	s.history = append(s.history, move)
	fmt.Fprintln(s.out, "bestmove", move)
}

func (s *session) lastMove() string {
	if len(s.history) == 0 {
		return ""
	}
	return s.history[len(s.history)-1]
}

// currentProber returns the prober for the configured SyzygyPath, starting
// it on first use. A failed start is remembered per path so a bad
// configuration does not respawn the helper on every go.
func (s *session) currentProber() engine.Prober {
	if s.opts.Filter != engine.FilterSyzygy || s.opts.SyzygyPath == "" {
		return nil
	}
	if s.proberPath == s.opts.SyzygyPath {
		if s.prober != nil {
			return s.prober
		}
		return nil
	}
	s.dropProber()
	s.proberPath = s.opts.SyzygyPath
	p, err := engine.NewSyzygyProber(engine.DefaultProberBinary, s.opts.SyzygyPath)
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.opts.SyzygyPath).Msg("syzygy prober unavailable")
		return nil
	}
	s.prober = p
	return s.prober
}

func (s *session) dropProber() {
	if s.prober != nil {
		s.prober.Close()
	}
	s.prober = nil
	s.proberPath = ""
}

func (s *session) close() {
	s.dropProber()
}

// cmdPrint is a non-standard helper that draws the current board, rank 8
// at the top.
func (s *session) cmdPrint() {
	placement := strings.SplitN(s.board.ToFen(), " ", 2)[0]
	for _, rank := range strings.Split(placement, "/") {
		var row []byte
		for _, ch := range rank {
			if ch >= '1' && ch <= '8' {
				for i := 0; i < int(ch-'0'); i++ {
					row = append(row, '.', ' ')
				}
			} else {
				row = append(row, byte(ch), ' ')
			}
		}
		fmt.Fprintln(s.out, strings.TrimRight(string(row), " "))
	}
}
