package models

import (
	"context"
	"errors"
	"sync"
)

// ScriptedCall records one Complete invocation observed by a ScriptedChat.
type ScriptedCall struct {
	System string
	Turns  []Turn
	Tools  []ToolDef
}

// ScriptedChat is a deterministic Chat for tests. Each Complete call pops the
// next queued response; an empty queue is an error. Queue an error entry to
// simulate a transport failure.
type ScriptedChat struct {
	mu    sync.Mutex
	queue []scriptedStep
	calls []ScriptedCall
}

type scriptedStep struct {
	resp *Response
	err  error
}

var _ Chat = (*ScriptedChat)(nil)

// NewScriptedChat queues the given responses in order.
func NewScriptedChat(responses ...*Response) *ScriptedChat {
	s := &ScriptedChat{}
	for _, r := range responses {
		s.queue = append(s.queue, scriptedStep{resp: r})
	}
	return s
}

// QueueResponse appends a successful completion to the script.
func (s *ScriptedChat) QueueResponse(r *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scriptedStep{resp: r})
}

// QueueError appends a failing completion to the script.
func (s *ScriptedChat) QueueError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scriptedStep{err: err})
}

// Complete pops the next scripted step and records the call.
func (s *ScriptedChat) Complete(_ context.Context, system string, turns []Turn, tools []ToolDef) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, ScriptedCall{
		System: system,
		Turns:  append([]Turn(nil), turns...),
		Tools:  append([]ToolDef(nil), tools...),
	})

	if len(s.queue) == 0 {
		return nil, errors.New("models: scripted chat exhausted")
	}
	step := s.queue[0]
	s.queue = s.queue[1:]
	if step.err != nil {
		return nil, step.err
	}
	return step.resp, nil
}

// Calls returns the recorded Complete invocations in order.
func (s *ScriptedChat) Calls() []ScriptedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScriptedCall(nil), s.calls...)
}

// CallCount reports how many times Complete has been invoked.
func (s *ScriptedChat) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
