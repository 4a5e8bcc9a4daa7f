package prompt

import (
	"context"
	"fmt"
	"sync"
)

// Scripted replays canned answers keyed by question title. It lets
// pipelines that prompt be exercised without a terminal.
type Scripted struct {
	mu       sync.Mutex
	Confirms map[string]bool
	Inputs   map[string]string
	asked    []string
}

// Interactive implements Prompter.
func (s *Scripted) Interactive() bool { return true }

// Confirm implements Prompter. Unscripted titles get the default.
func (s *Scripted) Confirm(_ context.Context, title, _ string, defaultValue bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, title)
	if v, ok := s.Confirms[title]; ok {
		return v, nil
	}
	return defaultValue, nil
}

// Input implements Prompter. Scripted answers still pass the validator.
func (s *Scripted) Input(_ context.Context, q Question) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, q.Title)
	v := s.Inputs[q.Title]
	if q.Validate != nil {
		if err := q.Validate(v); err != nil {
			return "", fmt.Errorf("%s: %w", q.Title, err)
		}
	}
	return v, nil
}

// Asked returns the titles asked so far, in order.
func (s *Scripted) Asked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.asked...)
}
