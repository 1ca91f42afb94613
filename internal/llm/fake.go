package llm

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"
)

// Fake is a scripted Agent. Answers are queued per call name; the last
// answer of a call is reused once the queue is down to one entry.
type Fake struct {
	mu      sync.Mutex
	answers map[string][]any
	Calls   []Request
}

var _ Agent = (*Fake)(nil)

// NewFake returns an empty scripted agent
func NewFake() *Fake {
	return &Fake{answers: make(map[string][]any)}
}

// On queues an answer for the named call. The answer is a result struct, a
// string for Complete, or an error.
func (f *Fake) On(name string, answer any) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[name] = append(f.answers[name], answer)
	return f
}

// CallCount returns how often the named call was made
func (f *Fake) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

func (f *Fake) next(req Request) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, req)

	queue := f.answers[req.Name]
	if len(queue) == 0 {
		return nil, eris.Errorf("no scripted answer for %s", req.Name)
	}
	answer := queue[0]
	if len(queue) > 1 {
		f.answers[req.Name] = queue[1:]
	}
	if err, ok := answer.(error); ok {
		return nil, err
	}
	return answer, nil
}

// Complete returns the next scripted string
func (f *Fake) Complete(_ context.Context, req Request) (string, error) {
	answer, err := f.next(req)
	if err != nil {
		return "", err
	}
	s, ok := answer.(string)
	if !ok {
		return "", eris.Errorf("scripted answer for %s is not a string", req.Name)
	}
	return s, nil
}

// Structured copies the next scripted answer into out through JSON
func (f *Fake) Structured(_ context.Context, req Request, _ string, out any) error {
	answer, err := f.next(req)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(answer)
	if err != nil {
		return eris.Wrap(err, "marshal scripted answer")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return eris.Wrapf(ErrMalformedOutput, "%s: %v", req.Name, err)
	}
	return nil
}
