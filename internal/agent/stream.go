package agent

import (
	"context"
	"fmt"

	"github.com/edstats/schema-chat/internal/conversation"
	"github.com/edstats/schema-chat/internal/errors"
	"github.com/edstats/schema-chat/internal/llm"
	"github.com/edstats/schema-chat/internal/observer"
)

// UnitKind classifies one delivered streaming unit
type UnitKind string

const (
	// UnitToolCall is a model request to invoke a tool
	UnitToolCall UnitKind = "tool_call"

	// UnitToolResult is the outcome of one tool invocation
	UnitToolResult UnitKind = "tool_result"

	// UnitMessage is a model text message; the last one is the answer
	UnitMessage UnitKind = "message"

	// UnitLimitNotice signals the step ceiling was hit and the run aborted
	UnitLimitNotice UnitKind = "limit_notice"
)

// Unit is one observable step of a streaming run. ToolArgs and tool-result
// Content are truncated for display; the payloads actually exchanged with
// tools and the model are not.
type Unit struct {
	Kind     UnitKind
	Step     int
	ToolName string
	ToolArgs string
	Content  string
}

// Stream is a pull-based iteration over one agent run. Each Next call
// delivers the next unit; the caller renders progress between calls. After
// Next returns false, Result and Err describe the outcome.
type Stream struct {
	c   *Controller
	ctx context.Context
	cfg RunConfig
	obs *observer.Observer

	messages     []llm.Message
	pendingUnits []Unit
	pendingCalls []llm.ToolCall

	steps      int
	maxSteps   int
	answer     string
	modelDone  bool
	finished   bool
	finalState State
	err        error
}

// Stream starts a streaming run and returns the iterator. The model is not
// called until the first Next.
func (c *Controller) Stream(
	ctx context.Context,
	cfg RunConfig,
	history []conversation.Turn,
	question string,
	obs *observer.Observer,
) *Stream {
	c.state = StatePromptBuilt

	maxSteps := cfg.MaxToolSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxToolSteps
	}

	c.state = StateToolLoopRunning

	return &Stream{
		c:        c,
		ctx:      ctx,
		cfg:      cfg,
		obs:      obs,
		messages: buildMessages(cfg, history, question),
		maxSteps: maxSteps,
	}
}

// Next delivers the next unit. It returns false once the run has finished,
// aborted at the ceiling, or failed.
func (s *Stream) Next() (Unit, bool) {
	if s.finished {
		return Unit{}, false
	}

	for len(s.pendingUnits) == 0 {
		if s.modelDone {
			s.finish(StateCompleted)
			return Unit{}, false
		}

		if err := s.advance(); err != nil {
			s.err = err
			s.finish(StateToolError)

			return Unit{}, false
		}
	}

	unit := s.pendingUnits[0]
	s.pendingUnits = s.pendingUnits[1:]

	s.steps++
	unit.Step = s.steps

	// The ceiling fires on the unit after the last allowed one: that unit
	// is replaced by the abort notice and the run stops.
	if s.steps > s.maxSteps {
		s.finish(StateStepLimitExceeded)

		return Unit{
			Kind:    UnitLimitNotice,
			Step:    s.steps,
			Content: fmt.Sprintf("Stopped after %d steps to prevent timeout", s.maxSteps),
		}, true
	}

	return unit, true
}

// advance performs the next underlying operation: execute a pending tool
// call, or make the next model round-trip.
func (s *Stream) advance() error {
	if len(s.pendingCalls) > 0 {
		call := s.pendingCalls[0]
		s.pendingCalls = s.pendingCalls[1:]

		result := s.c.dispatchTool(s.ctx, call)

		s.messages = append(s.messages, llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: call.ID,
			Content:    result,
		})

		s.pendingUnits = append(s.pendingUnits, Unit{
			Kind:     UnitToolResult,
			ToolName: call.Name,
			Content:  truncateForDisplay(result),
		})

		return nil
	}

	completion, err := s.c.model.Chat(s.ctx, s.messages, toolDefinitions())
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeLLM, "agent model call failed")
	}

	recordUsage(s.obs, s.messages, completion)

	s.messages = append(s.messages, completion.Message)

	if completion.Message.Content != "" {
		s.answer = completion.Message.Content

		s.pendingUnits = append(s.pendingUnits, Unit{
			Kind:    UnitMessage,
			Content: completion.Message.Content,
		})
	}

	if len(completion.Message.ToolCalls) == 0 {
		s.modelDone = true
		return nil
	}

	for _, call := range completion.Message.ToolCalls {
		s.pendingUnits = append(s.pendingUnits, Unit{
			Kind:     UnitToolCall,
			ToolName: call.Name,
			ToolArgs: truncateForDisplay(call.Arguments),
		})
	}

	s.pendingCalls = append(s.pendingCalls, completion.Message.ToolCalls...)

	return nil
}

func (s *Stream) finish(state State) {
	s.finished = true
	s.finalState = state
	s.c.state = state
}

// Err returns the error that aborted the run, if any
func (s *Stream) Err() error {
	return s.err
}

// Result returns the outcome once Next has returned false. The answer is
// the most recent model text, or the fallback when none was produced.
func (s *Stream) Result() *Result {
	return &Result{
		Answer: ensureAnswer(s.answer),
		State:  s.finalState,
	}
}
