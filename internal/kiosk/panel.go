package kiosk

import "sync"

// panel captures the flow's presentation effects for the current request so
// handlers can fold them into the JSON response. It stands in for the UI
// surface the flow was designed against.
type panel struct {
	mu      sync.Mutex
	events  []string
	lastMsg string
}

func (p *panel) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
	p.lastMsg = ""
}

func (p *panel) record(event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *panel) message() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastMsg
}

// effects returns the presentation events recorded since the last reset, in
// order (close, celebrate, success/failure).
func (p *panel) effects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	copy(out, p.events)
	return out
}

func (p *panel) CloseEntry() { p.record("close") }

func (p *panel) Celebrate() { p.record("celebrate") }

func (p *panel) Success(message string) {
	p.mu.Lock()
	p.lastMsg = message
	p.mu.Unlock()
	p.record("success")
}

func (p *panel) Failure(message string) {
	p.mu.Lock()
	p.lastMsg = message
	p.mu.Unlock()
	p.record("failure")
}
