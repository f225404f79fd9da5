package listing

// Token identifies one dispatched fetch. Tokens strictly increase.
type Token uint64

// Sequencer mints fetch tokens and decides which response may be applied.
// Exactly one token is current: the most recently minted one.
type Sequencer struct {
	current  Token
	inFlight bool
}

// Next mints a new token and makes it current.
func (s *Sequencer) Next() Token {
	s.current++
	s.inFlight = true
	return s.current
}

// Current returns the current token (0 before the first dispatch).
func (s *Sequencer) Current() Token {
	return s.current
}

// InFlight reports whether the current token's response is outstanding.
func (s *Sequencer) InFlight() bool {
	return s.inFlight
}

// Accept settles a response. It returns ErrStaleResponse unless t is
// current; callers must then drop the response without surfacing anything.
func (s *Sequencer) Accept(t Token) error {
	if t != s.current || s.current == 0 {
		return ErrStaleResponse
	}
	s.inFlight = false
	return nil
}

// Abandon invalidates every outstanding token. Used on unmount.
func (s *Sequencer) Abandon() {
	s.current++
	s.inFlight = false
}
