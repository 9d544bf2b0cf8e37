package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yamagen/frontdesk/internal/agents"
	"github.com/yamagen/frontdesk/internal/intent"
	"github.com/yamagen/frontdesk/pkg/models"
)

// handleNew routes a message with no active task: help, classify, and either
// reply directly or create a task awaiting confirmation.
func (d *Dispatcher) handleNew(ctx context.Context, msg Inbound) error {
	vocab := d.vocabulary()
	if vocab.IsHelp(msg.Text) {
		d.post(msg, helpText(d.catalog))
		return nil
	}
	// Cancel with nothing active is a no-op worth acknowledging.
	if vocab.IsCancel(msg.Text) {
		d.post(msg, nothingActiveMessage())
		return nil
	}

	in, err := d.classify(ctx, msg.Text)
	if err != nil {
		d.post(msg, unroutableMessage())
		if errors.Is(err, intent.ErrUnroutable) {
			return nil
		}
		return err
	}

	switch in.Action {
	case intent.ActionChat:
		reply := in.Hint
		if reply == "" {
			reply = unroutableMessage()
		}
		d.post(msg, reply)
		return nil

	case intent.ActionAsk:
		question := in.Hint
		if question == "" {
			question = "Could you tell me a bit more about what you need?"
		}
		task := models.Task{
			ConversationID:  msg.ConversationID,
			State:           models.Clarify(),
			Channel:         msg.Channel,
			StartTime:       d.now(),
			OriginalMessage: msg.Text,
		}
		if err := d.registry.Create(task); err != nil {
			return fmt.Errorf("create clarify task: %w", err)
		}
		d.monitor.Update(task)
		d.post(msg, question)
		return nil

	default:
		return d.startTask(msg, in)
	}
}

// startTask creates a confirm-state task for a routed agent and posts the
// confirmation prompt with an estimate.
func (d *Dispatcher) startTask(msg Inbound, in intent.Intent) error {
	profile, ok := d.catalog.Get(in.Action)
	if !ok {
		d.post(msg, unroutableMessage())
		return nil
	}

	topic := in.Hint
	if topic == "" {
		topic = strings.TrimSpace(msg.Text)
	}
	task := models.Task{
		ConversationID:  msg.ConversationID,
		Agent:           profile.Name,
		State:           models.Confirm(),
		Channel:         msg.Channel,
		StartTime:       d.now(),
		Topic:           topic,
		Hint:            in.Hint,
		OriginalMessage: msg.Text,
	}
	if err := d.registry.Create(task); err != nil {
		return fmt.Errorf("create task for %s: %w", msg.ConversationID, err)
	}
	d.monitor.Update(task)

	est := d.ledger.Estimate(profile.Name, profile.DefaultEstimate)
	d.post(msg, confirmPrompt(profile, est))
	return nil
}

// handleConfirm processes a reply while the task awaits go-ahead. Order
// matters: cancellation always wins, then decline, then confirmation.
func (d *Dispatcher) handleConfirm(ctx context.Context, msg Inbound, task models.Task) error {
	vocab := d.vocabulary()
	switch {
	case vocab.IsCancel(msg.Text), vocab.IsNegative(msg.Text):
		return d.cancelTask(msg, task)
	case vocab.IsHelp(msg.Text):
		d.post(msg, helpText(d.catalog))
		return nil
	}

	if hint, ok := vocab.AffirmativeWithHint(msg.Text); ok {
		if hint != "" {
			err := d.registry.Update(msg.ConversationID, func(t *models.Task) error {
				t.Hint = joinHints(t.Hint, hint)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return d.runPhases(ctx, msg, 0)
	}

	// Anything else is extra context offered before the go-ahead; keep it
	// so the eventual run sees it, then ask again.
	err := d.registry.Update(msg.ConversationID, func(t *models.Task) error {
		t.Hint = joinHints(t.Hint, strings.TrimSpace(msg.Text))
		return nil
	})
	if err != nil {
		return err
	}
	if updated, err := d.registry.Get(msg.ConversationID); err == nil {
		d.monitor.Update(updated)
	}
	d.post(msg, confirmNoted())
	return nil
}

// handleClarify folds the reply into the original request and re-classifies.
func (d *Dispatcher) handleClarify(ctx context.Context, msg Inbound, task models.Task) error {
	vocab := d.vocabulary()
	if vocab.IsCancel(msg.Text) || vocab.IsNegative(msg.Text) {
		return d.cancelTask(msg, task)
	}

	combined := task.OriginalMessage + "\n" + msg.Text
	in, err := d.classify(ctx, combined)
	if err != nil {
		d.post(msg, unroutableMessage())
		if errors.Is(err, intent.ErrUnroutable) {
			return nil
		}
		return err
	}

	switch in.Action {
	case intent.ActionAsk:
		question := in.Hint
		if question == "" {
			question = "Could you tell me a bit more about what you need?"
		}
		err := d.registry.Update(msg.ConversationID, func(t *models.Task) error {
			t.OriginalMessage = combined
			return nil
		})
		if err != nil {
			return err
		}
		d.post(msg, question)
		return nil

	case intent.ActionChat:
		d.registry.Delete(msg.ConversationID)
		d.monitor.Remove(msg.ConversationID)
		reply := in.Hint
		if reply == "" {
			reply = unroutableMessage()
		}
		d.post(msg, reply)
		return nil
	}

	profile, ok := d.catalog.Get(in.Action)
	if !ok {
		d.post(msg, unroutableMessage())
		return nil
	}

	topic := in.Hint
	if topic == "" {
		topic = strings.TrimSpace(combined)
	}
	err = d.registry.Update(msg.ConversationID, func(t *models.Task) error {
		t.Agent = profile.Name
		t.State = models.Confirm()
		t.Topic = topic
		t.Hint = in.Hint
		t.OriginalMessage = combined
		return nil
	})
	if err != nil {
		return err
	}
	if updated, err := d.registry.Get(msg.ConversationID); err == nil {
		d.monitor.Update(updated)
	}

	est := d.ledger.Estimate(profile.Name, profile.DefaultEstimate)
	d.post(msg, confirmPrompt(profile, est))
	return nil
}

// handleReview processes a reply at a review checkpoint: cancel, finalize to
// resume the plan, back to the previous checkpoint, or free text as a
// revision instruction for the paused phase.
func (d *Dispatcher) handleReview(ctx context.Context, msg Inbound, task models.Task) error {
	vocab := d.vocabulary()
	profile, ok := d.catalog.Get(task.Agent)
	if !ok {
		return fmt.Errorf("task %s references unknown agent %q", task.ConversationID, task.Agent)
	}
	phase := task.State.Phase
	cur := profile.PhaseIndex(phase)
	if cur < 0 {
		return fmt.Errorf("task %s paused on unknown phase %q", task.ConversationID, phase)
	}

	switch {
	case vocab.IsCancel(msg.Text), vocab.IsNegative(msg.Text):
		return d.cancelTask(msg, task)

	case vocab.IsHelp(msg.Text):
		d.post(msg, reviewHelp())
		return nil

	case vocab.IsFinalize(msg.Text):
		return d.runPhases(ctx, msg, cur+1)

	case vocab.IsBack(msg.Text):
		// Rerun from the previous checkpoint for a fresh take; with no
		// earlier checkpoint, rerun the current phase.
		back := cur
		for i := cur - 1; i >= 0; i-- {
			if profile.Phases[i].Review {
				back = i
				break
			}
		}
		return d.runPhases(ctx, msg, back)
	}

	return d.revisePhase(ctx, msg, task, profile, phase)
}

// revisePhase reruns the paused phase with the user's instruction, replacing
// its artifact. The task stays at the same checkpoint.
func (d *Dispatcher) revisePhase(ctx context.Context, msg Inbound, task models.Task, profile models.AgentProfile, phase string) error {
	exec, err := d.execs.Get(task.Agent)
	if err != nil {
		return d.markErrored(msg, phase, err)
	}

	req := agents.PhaseRequest{
		Agent:       task.Agent,
		Phase:       phase,
		Topic:       task.Topic,
		Hint:        task.Hint,
		Instruction: strings.TrimSpace(msg.Text),
		Payload:     task.Payload,
	}
	res, err := d.callExecutor(ctx, exec.Revise, req)
	if err != nil {
		return d.markErrored(msg, phase, err)
	}

	err = d.registry.Update(msg.ConversationID, func(t *models.Task) error {
		if err := d.ledger.RecordPhaseCost(t, phase, d.resolveCost(phase, res)); err != nil {
			return err
		}
		if t.Payload == nil {
			t.Payload = make(map[string]string)
		}
		t.Payload[phase] = res.Output
		return nil
	})
	if err != nil {
		return err
	}
	if updated, err := d.registry.Get(msg.ConversationID); err == nil {
		d.monitor.Update(updated)
	}

	d.post(msg, reviewPrompt(phase, res.Output))
	return nil
}

// runPhases executes the plan from the given index, pausing at the first
// review checkpoint reached. Past the last phase it finalizes the task.
func (d *Dispatcher) runPhases(ctx context.Context, msg Inbound, start int) error {
	task, err := d.registry.Get(msg.ConversationID)
	if err != nil {
		return err
	}
	profile, ok := d.catalog.Get(task.Agent)
	if !ok {
		return fmt.Errorf("task %s references unknown agent %q", task.ConversationID, task.Agent)
	}
	exec, execErr := d.execs.Get(task.Agent)
	if execErr != nil {
		return d.markErrored(msg, "", execErr)
	}

	for i := start; i < len(profile.Phases); i++ {
		spec := profile.Phases[i]

		err := d.registry.Update(msg.ConversationID, func(t *models.Task) error {
			t.State = models.Executing(spec.Name)
			return nil
		})
		if err != nil {
			return err
		}
		task, _ = d.registry.Get(msg.ConversationID)
		d.monitor.Update(task)

		req := agents.PhaseRequest{
			Agent:   task.Agent,
			Phase:   spec.Name,
			Topic:   task.Topic,
			Hint:    task.Hint,
			Payload: task.Payload,
		}
		res, err := d.callExecutor(ctx, exec.Execute, req)
		if err != nil {
			return d.markErrored(msg, spec.Name, err)
		}

		err = d.registry.Update(msg.ConversationID, func(t *models.Task) error {
			if err := d.ledger.RecordPhaseCost(t, spec.Name, d.resolveCost(spec.Name, res)); err != nil {
				return err
			}
			if t.Payload == nil {
				t.Payload = make(map[string]string)
			}
			t.Payload[spec.Name] = res.Output
			if spec.Review {
				t.State = models.Review(spec.Name)
			}
			return nil
		})
		if err != nil {
			return err
		}

		if spec.Review {
			task, _ = d.registry.Get(msg.ConversationID)
			d.monitor.Update(task)
			d.post(msg, reviewPrompt(spec.Name, res.Output))
			return nil
		}
	}

	return d.completeTask(msg, profile)
}

// callExecutor runs one executor call under the phase timeout. The registry
// lock is never held here; only the per-conversation lock serializes us.
func (d *Dispatcher) callExecutor(ctx context.Context, call func(context.Context, agents.PhaseRequest) (agents.PhaseResult, error), req agents.PhaseRequest) (agents.PhaseResult, error) {
	pctx, cancel := context.WithTimeout(ctx, d.phaseTimeout)
	defer cancel()
	return call(pctx, req)
}

// resolveCost picks the executor's reported cost, deriving it from token
// usage when only tokens are known. A negative report is an executor defect;
// it is counted as zero and noted, never propagated into the ledger.
func (d *Dispatcher) resolveCost(phase string, res agents.PhaseResult) float64 {
	if res.CostUSD < 0 {
		d.monitor.Note(fmt.Sprintf("executor reported negative cost %.4f for phase %s, counting it as 0", res.CostUSD, phase))
		return 0
	}
	if res.CostUSD > 0 {
		return res.CostUSD
	}
	if res.InputTokens > 0 || res.OutputTokens > 0 {
		return d.pricing.Cost(res.InputTokens, res.OutputTokens)
	}
	return 0
}

// completeTask finalizes a task that walked off the end of its plan: writes
// the history record, posts the summary, and retires the registry entry.
func (d *Dispatcher) completeTask(msg Inbound, profile models.AgentProfile) error {
	var final models.Task
	err := d.registry.Update(msg.ConversationID, func(t *models.Task) error {
		t.State = models.Completed()
		final = t.Clone()
		return nil
	})
	if err != nil {
		return err
	}
	d.monitor.Update(final)

	rec, err := d.ledger.Finalize(final, final.Topic)
	if err != nil {
		// The run still succeeded; losing the history record only degrades
		// future estimates.
		d.monitor.Note(fmt.Sprintf("history write for %s failed: %v", msg.ConversationID, err))
	}

	d.post(msg, completionSummary(final, profile, rec, d.now()))
	d.registry.Delete(msg.ConversationID)
	d.monitor.Remove(msg.ConversationID)
	return nil
}

// cancelTask retires a task on user request. Runs that already spent money
// are finalized into history so partial spend stays visible; zero-cost
// cancellations leave no record.
func (d *Dispatcher) cancelTask(msg Inbound, task models.Task) error {
	var final models.Task
	err := d.registry.Update(msg.ConversationID, func(t *models.Task) error {
		t.State = models.Cancelled()
		final = t.Clone()
		return nil
	})
	if err != nil {
		return err
	}
	d.monitor.Update(final)

	if final.TotalCostUSD > 0 {
		if _, err := d.ledger.Finalize(final, final.Topic); err != nil {
			d.monitor.Note(fmt.Sprintf("history write for %s failed: %v", msg.ConversationID, err))
		}
	}

	d.post(msg, cancelledMessage(final, d.ledger.JPYPerUSD()))
	d.registry.Delete(msg.ConversationID)
	d.monitor.Remove(msg.ConversationID)
	return nil
}

// markErrored retires a task after an executor failure or timeout. The run
// is finalized with whatever it spent, so partial cost stays on the books.
func (d *Dispatcher) markErrored(msg Inbound, phase string, cause error) error {
	var final models.Task
	err := d.registry.Update(msg.ConversationID, func(t *models.Task) error {
		t.State = models.Errored()
		final = t.Clone()
		return nil
	})
	if err != nil {
		return err
	}
	d.monitor.Update(final)

	if _, err := d.ledger.Finalize(final, final.Topic); err != nil {
		d.monitor.Note(fmt.Sprintf("history write for %s failed: %v", msg.ConversationID, err))
	}

	d.post(msg, erroredMessage(phase, cause, final, d.ledger.JPYPerUSD()))
	d.registry.Delete(msg.ConversationID)
	d.monitor.Remove(msg.ConversationID)
	return fmt.Errorf("task %s failed in phase %q: %w", msg.ConversationID, phase, cause)
}

// joinHints appends a new instruction to the accumulated hint text.
func joinHints(existing, extra string) string {
	if existing == "" {
		return extra
	}
	if extra == "" {
		return existing
	}
	return existing + "; " + extra
}
