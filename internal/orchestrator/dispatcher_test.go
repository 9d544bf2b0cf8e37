package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yamagen/frontdesk/internal/agents"
	"github.com/yamagen/frontdesk/internal/intent"
	"github.com/yamagen/frontdesk/internal/ledger"
	"github.com/yamagen/frontdesk/internal/registry"
	"github.com/yamagen/frontdesk/pkg/models"
)

type fakePoster struct {
	mu   sync.Mutex
	msgs []string
}

func (p *fakePoster) Post(conversationID, channel, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, text)
	return nil
}

func (p *fakePoster) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.msgs) == 0 {
		return ""
	}
	return p.msgs[len(p.msgs)-1]
}

type classifierFunc func(ctx context.Context, text string) (intent.Intent, error)

func (f classifierFunc) Classify(ctx context.Context, text string) (intent.Intent, error) {
	return f(ctx, text)
}

// keywordClassifier routes on substring match against agent names.
func keywordClassifier(names ...string) classifierFunc {
	return func(_ context.Context, text string) (intent.Intent, error) {
		lower := strings.ToLower(text)
		for _, name := range names {
			if strings.Contains(lower, name) {
				return intent.Intent{Action: name}, nil
			}
		}
		return intent.Intent{}, intent.ErrUnroutable
	}
}

type scriptedExecutor struct {
	mu          sync.Mutex
	costs       map[string]float64
	reviseCosts map[string]float64
	tokens      map[string][2]int64
	executed    []string
	revised     []string
	hints       []string
	failOn      string
	reviseErr   error
	blockOn     string
}

func (e *scriptedExecutor) Execute(ctx context.Context, req agents.PhaseRequest) (agents.PhaseResult, error) {
	e.mu.Lock()
	block := req.Phase == e.blockOn
	fail := req.Phase == e.failOn
	e.mu.Unlock()

	if block {
		<-ctx.Done()
		return agents.PhaseResult{}, ctx.Err()
	}
	if fail {
		return agents.PhaseResult{}, errors.New("backend exploded")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.executed = append(e.executed, req.Phase)
	e.hints = append(e.hints, req.Hint)
	res := agents.PhaseResult{Output: "out-" + req.Phase, CostUSD: e.costs[req.Phase]}
	if tok, ok := e.tokens[req.Phase]; ok {
		res.InputTokens, res.OutputTokens = tok[0], tok[1]
	}
	return res, nil
}

func (e *scriptedExecutor) Revise(ctx context.Context, req agents.PhaseRequest) (agents.PhaseResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reviseErr != nil {
		return agents.PhaseResult{}, e.reviseErr
	}
	e.revised = append(e.revised, req.Instruction)
	cost := e.costs[req.Phase]
	if c, ok := e.reviseCosts[req.Phase]; ok {
		cost = c
	}
	return agents.PhaseResult{
		Output:  fmt.Sprintf("rev-%s-%d", req.Phase, len(e.revised)),
		CostUSD: cost,
	}, nil
}

func (e *scriptedExecutor) executedPhases() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.executed...)
}

type memorySink struct {
	mu   sync.Mutex
	recs map[string][]models.HistoryRecord
}

func newMemorySink() *memorySink {
	return &memorySink{recs: make(map[string][]models.HistoryRecord)}
}

func (s *memorySink) Append(agent string, rec models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[agent] = append(s.recs[agent], rec)
	return nil
}

func (s *memorySink) ListByAgent(agent string) ([]models.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HistoryRecord(nil), s.recs[agent]...), nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, recs := range s.recs {
		n += len(recs)
	}
	return n
}

// noteRecorder captures monitor notes, discarding task updates.
type noteRecorder struct {
	NopMonitor
	mu    sync.Mutex
	notes []string
}

func (m *noteRecorder) Note(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, text)
}

func (m *noteRecorder) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.notes...)
}

// testCatalog has one straight-through agent and one with two checkpoints.
func testCatalog(t *testing.T) *agents.Catalog {
	t.Helper()
	c, err := agents.NewCatalog([]models.AgentProfile{
		{
			Name:  "pipeline",
			Label: "straight pipeline",
			Phases: []models.PhaseSpec{
				{Name: "plan"}, {Name: "build"}, {Name: "ship"},
			},
			DefaultEstimate: models.Estimate{TimeLow: time.Minute, TimeHigh: 2 * time.Minute, CostLowJPY: 1, CostHighJPY: 5},
		},
		{
			Name:  "memo",
			Label: "one checkpoint then publish",
			Phases: []models.PhaseSpec{
				{Name: "write", Review: true},
				{Name: "post"},
			},
			DefaultEstimate: models.Estimate{TimeLow: time.Minute, TimeHigh: 2 * time.Minute, CostLowJPY: 1, CostHighJPY: 5},
		},
		{
			Name:  "draft",
			Label: "drafting with checkpoints",
			Phases: []models.PhaseSpec{
				{Name: "collect"}, {Name: "trends"},
				{Name: "proposals", Review: true},
				{Name: "expand", Review: true},
				{Name: "publish"},
			},
			DefaultEstimate: models.Estimate{TimeLow: time.Minute, TimeHigh: 2 * time.Minute, CostLowJPY: 1, CostHighJPY: 5},
		},
	})
	if err != nil {
		t.Fatalf("build test catalog: %v", err)
	}
	return c
}

type env struct {
	d      *Dispatcher
	reg    *registry.Registry
	sink   *memorySink
	poster *fakePoster
	exec   *scriptedExecutor
}

func newTestEnv(t *testing.T, mod func(*Options)) *env {
	t.Helper()

	reg := registry.New()
	sink := newMemorySink()
	poster := &fakePoster{}
	exec := &scriptedExecutor{
		costs: map[string]float64{
			"plan": 0.02, "build": 0.01, "ship": 0.005,
			"collect": 0.001, "trends": 0.002, "proposals": 0.003, "expand": 0.004, "publish": 0.001,
			"write": 0.02, "post": 0.005,
		},
		reviseCosts: map[string]float64{"write": 0.01},
	}

	catalog := testCatalog(t)
	execs := agents.NewExecutorSet()
	for _, name := range catalog.Names() {
		execs.Register(name, exec)
	}

	opts := Options{
		Registry:   reg,
		Ledger:     ledger.New(sink),
		Catalog:    catalog,
		Executors:  execs,
		Classifier: keywordClassifier("pipeline", "draft", "memo"),
		Poster:     poster,
	}
	if mod != nil {
		mod(&opts)
	}

	d, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return &env{d: d, reg: reg, sink: sink, poster: poster, exec: exec}
}

func (e *env) send(t *testing.T, conv, text string) {
	t.Helper()
	if err := e.d.HandleMessage(context.Background(), Inbound{ConversationID: conv, Channel: "chan", Text: text}); err != nil {
		t.Fatalf("HandleMessage(%q) failed: %v", text, err)
	}
}

func TestFullRunAccumulatesCosts(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "C1", "run the pipeline for me")
	if !strings.Contains(e.poster.last(), "pipeline") {
		t.Fatalf("confirm prompt missing agent name: %q", e.poster.last())
	}

	e.send(t, "C1", "yes")

	got := e.exec.executedPhases()
	want := []string{"plan", "build", "ship"}
	if len(got) != len(want) {
		t.Fatalf("executed phases = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("executed phases = %v, want %v", got, want)
		}
	}

	if e.reg.Len() != 0 {
		t.Errorf("registry still holds %d tasks after completion", e.reg.Len())
	}

	recs, _ := e.sink.ListByAgent("pipeline")
	if len(recs) != 1 {
		t.Fatalf("history has %d records, want 1", len(recs))
	}
	if diff := recs[0].CostUSD - 0.035; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("recorded CostUSD = %v, want 0.035", recs[0].CostUSD)
	}
	if diff := recs[0].CostJPY - 5.25; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("recorded CostJPY = %v, want 5.25", recs[0].CostJPY)
	}
	if !strings.Contains(e.poster.last(), "plan: $0.0200") {
		t.Errorf("completion summary missing breakdown: %q", e.poster.last())
	}
}

func TestRevisionCostsAddUp(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "T1", "write a memo")
	e.send(t, "T1", "yes")

	task, err := e.reg.Get("T1")
	if err != nil || task.State != models.Review("write") {
		t.Fatalf("task = %v, %v; want review:write", task.State, err)
	}

	e.send(t, "T1", "tighten the intro")
	e.send(t, "T1", "finalize")

	recs, _ := e.sink.ListByAgent("memo")
	if len(recs) != 1 {
		t.Fatalf("history has %d records, want 1", len(recs))
	}
	// 0.02 first pass, 0.01 revision, 0.005 publish step.
	if diff := recs[0].CostUSD - 0.035; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CostUSD = %v, want 0.035", recs[0].CostUSD)
	}
	if e.reg.Len() != 0 {
		t.Errorf("registry not empty after completion")
	}
}

func TestConfirmHintReachesExecutor(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "C1", "run the pipeline")
	e.send(t, "C1", "yes, food-themed please")

	e.exec.mu.Lock()
	defer e.exec.mu.Unlock()
	if len(e.exec.hints) == 0 || e.exec.hints[0] != "food-themed please" {
		t.Errorf("executor hints = %v, want first %q", e.exec.hints, "food-themed please")
	}
}

func TestConfirmFreeTextFoldsIntoHint(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "C1", "run the pipeline")
	e.send(t, "C1", "make it about cats")

	task, err := e.reg.Get("C1")
	if err != nil {
		t.Fatalf("task missing after extra context: %v", err)
	}
	if task.State != models.Confirm() {
		t.Fatalf("state = %s, want still confirm", task.State)
	}
	if task.Hint != "make it about cats" {
		t.Errorf("hint = %q, want the volunteered text", task.Hint)
	}
	if !strings.Contains(e.poster.last(), "yes") {
		t.Errorf("re-prompt = %q, want go-ahead instructions", e.poster.last())
	}

	e.send(t, "C1", "yes")
	e.exec.mu.Lock()
	defer e.exec.mu.Unlock()
	if len(e.exec.hints) == 0 || e.exec.hints[0] != "make it about cats" {
		t.Errorf("executor hints = %v, want the pre-confirm context first", e.exec.hints)
	}
}

func TestCancelBeforeConfirmLeavesNoTrace(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "C1", "run the pipeline")
	e.send(t, "C1", "cancel")

	if n := len(e.exec.executedPhases()); n != 0 {
		t.Errorf("executor ran %d phases after cancel, want 0", n)
	}
	if e.sink.count() != 0 {
		t.Errorf("history has %d records after zero-cost cancel, want 0", e.sink.count())
	}
	if e.reg.Len() != 0 {
		t.Errorf("registry still holds the cancelled task")
	}
	if !strings.Contains(e.poster.last(), "no cost") {
		t.Errorf("cancel message = %q", e.poster.last())
	}
}

func TestReviewLoopNeverAutoFinalizes(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "C1", "draft something")
	e.send(t, "C1", "yes")

	task, err := e.reg.Get("C1")
	if err != nil {
		t.Fatalf("task missing after start: %v", err)
	}
	if task.State != models.Review("proposals") {
		t.Fatalf("state = %s, want review:proposals", task.State)
	}

	for i := 0; i < 5; i++ {
		e.send(t, "C1", fmt.Sprintf("make it punchier, round %d", i))
	}

	task, _ = e.reg.Get("C1")
	if task.State != models.Review("proposals") {
		t.Errorf("state after 5 revisions = %s, want still review:proposals", task.State)
	}
	e.exec.mu.Lock()
	revisions := len(e.exec.revised)
	e.exec.mu.Unlock()
	if revisions != 5 {
		t.Errorf("Revise called %d times, want 5", revisions)
	}
	if e.sink.count() != 0 {
		t.Errorf("history written before completion")
	}

	e.send(t, "C1", "finalize")
	task, _ = e.reg.Get("C1")
	if task.State != models.Review("expand") {
		t.Fatalf("state after finalize = %s, want review:expand", task.State)
	}

	e.send(t, "C1", "finalize")
	if e.reg.Len() != 0 {
		t.Errorf("registry not empty after completion")
	}
	if e.sink.count() != 1 {
		t.Errorf("history has %d records, want 1", e.sink.count())
	}
}

func TestBackReturnsToPreviousCheckpoint(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "C1", "draft something")
	e.send(t, "C1", "yes")
	e.send(t, "C1", "finalize") // proposals -> expand

	before := len(e.exec.executedPhases())
	e.send(t, "C1", "other options")

	task, _ := e.reg.Get("C1")
	if task.State != models.Review("proposals") {
		t.Errorf("state after back = %s, want review:proposals", task.State)
	}
	got := e.exec.executedPhases()
	if len(got) != before+1 || got[len(got)-1] != "proposals" {
		t.Errorf("executed after back = %v, want one more proposals run", got)
	}
}

func TestCancelAtCheckpointRecordsPartialCost(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "C1", "draft something")
	e.send(t, "C1", "yes")
	e.send(t, "C1", "cancel")

	if e.sink.count() != 1 {
		t.Fatalf("history has %d records after costful cancel, want 1", e.sink.count())
	}
	recs, _ := e.sink.ListByAgent("draft")
	wantUSD := 0.001 + 0.002 + 0.003
	if diff := recs[0].CostUSD - wantUSD; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("cancelled run CostUSD = %v, want %v", recs[0].CostUSD, wantUSD)
	}
	if !strings.Contains(e.poster.last(), "Spent so far") {
		t.Errorf("cancel message = %q", e.poster.last())
	}
	if e.reg.Len() != 0 {
		t.Errorf("registry still holds the cancelled task")
	}
}

func TestPhaseTimeoutErrorsTask(t *testing.T) {
	e := newTestEnv(t, func(o *Options) {
		o.PhaseTimeout = 20 * time.Millisecond
	})
	e.exec.blockOn = "plan"

	e.send(t, "C1", "run the pipeline")
	err := e.d.HandleMessage(context.Background(), Inbound{ConversationID: "C1", Channel: "chan", Text: "yes"})
	if err == nil {
		t.Fatal("timed-out run returned nil error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded in chain", err)
	}
	if e.reg.Len() != 0 {
		t.Errorf("registry still holds the errored task")
	}
	// Errored runs are finalized with whatever was spent (nothing here).
	recs, _ := e.sink.ListByAgent("pipeline")
	if len(recs) != 1 || recs[0].CostUSD != 0 {
		t.Errorf("errored run history = %+v, want one zero-cost record", recs)
	}
	if !strings.Contains(e.poster.last(), "failed") {
		t.Errorf("error message = %q", e.poster.last())
	}
}

func TestReviseFailureIsTerminal(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "C1", "draft something")
	e.send(t, "C1", "yes")

	e.exec.mu.Lock()
	e.exec.reviseErr = errors.New("model refused")
	e.exec.mu.Unlock()

	err := e.d.HandleMessage(context.Background(), Inbound{ConversationID: "C1", Channel: "chan", Text: "shorter please"})
	if err == nil {
		t.Fatal("failed revision returned nil error")
	}
	if e.reg.Len() != 0 {
		t.Errorf("registry still holds the errored task")
	}

	// Spend up to the failure is still finalized.
	recs, _ := e.sink.ListByAgent("draft")
	wantUSD := 0.001 + 0.002 + 0.003
	if len(recs) != 1 {
		t.Fatalf("history has %d records, want 1", len(recs))
	}
	if diff := recs[0].CostUSD - wantUSD; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("errored run CostUSD = %v, want %v", recs[0].CostUSD, wantUSD)
	}
	if !strings.Contains(e.poster.last(), "Spent before the failure") {
		t.Errorf("error message = %q", e.poster.last())
	}
}

func TestTokenOnlyCostDerivedFromPricing(t *testing.T) {
	e := newTestEnv(t, func(o *Options) {
		o.Pricing = ledger.Pricing{InputPerMillion: 3, OutputPerMillion: 15}
	})
	e.exec.costs = map[string]float64{}
	e.exec.tokens = map[string][2]int64{
		"plan": {1000, 2000},
	}

	e.send(t, "C1", "run the pipeline")
	e.send(t, "C1", "yes")

	recs, _ := e.sink.ListByAgent("pipeline")
	if len(recs) != 1 {
		t.Fatalf("history has %d records, want 1", len(recs))
	}
	// 1000 in at $3/M plus 2000 out at $15/M.
	want := 0.003 + 0.03
	if diff := recs[0].CostUSD - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CostUSD = %v, want %v", recs[0].CostUSD, want)
	}
}

func TestNegativeCostClampedAndNoted(t *testing.T) {
	notes := &noteRecorder{}
	e := newTestEnv(t, func(o *Options) {
		o.Monitor = notes
	})
	e.exec.costs["plan"] = -0.01

	e.send(t, "C1", "run the pipeline")
	e.send(t, "C1", "yes")

	recs, _ := e.sink.ListByAgent("pipeline")
	if len(recs) != 1 {
		t.Fatalf("history has %d records, want 1", len(recs))
	}
	// The defective plan report counts as zero; build and ship still bill.
	want := 0.01 + 0.005
	if diff := recs[0].CostUSD - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CostUSD = %v, want %v", recs[0].CostUSD, want)
	}
	got := notes.all()
	if len(got) != 1 || !strings.Contains(got[0], "plan") {
		t.Errorf("monitor notes = %v, want one naming the phase", got)
	}
}

func TestUnroutableMessagePromptsRetry(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "C1", "asdf qwerty")
	if !strings.Contains(e.poster.last(), "help") {
		t.Errorf("unroutable reply = %q", e.poster.last())
	}
	if e.reg.Len() != 0 {
		t.Errorf("unroutable message created a task")
	}
}

func TestHelpListsAgents(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "C1", "help")
	last := e.poster.last()
	if !strings.Contains(last, "pipeline") || !strings.Contains(last, "draft") {
		t.Errorf("help output = %q", last)
	}
	if e.reg.Len() != 0 {
		t.Errorf("help created a task")
	}
}

func TestClarifyFlowRoutesAfterReply(t *testing.T) {
	e := newTestEnv(t, func(o *Options) {
		o.Classifier = classifierFunc(func(_ context.Context, text string) (intent.Intent, error) {
			if strings.Contains(text, "\n") {
				return intent.Intent{Action: "draft", Hint: "a reel script"}, nil
			}
			return intent.Intent{Action: intent.ActionAsk, Hint: "What should it be about?"}, nil
		})
	})

	e.send(t, "C1", "do the thing")
	if e.poster.last() != "What should it be about?" {
		t.Fatalf("clarify question = %q", e.poster.last())
	}
	task, err := e.reg.Get("C1")
	if err != nil || task.State != models.Clarify() {
		t.Fatalf("task state = %v, %v; want clarify", task.State, err)
	}

	e.send(t, "C1", "a reel script about coffee")
	task, _ = e.reg.Get("C1")
	if task.State != models.Confirm() || task.Agent != "draft" {
		t.Errorf("task after reply = %s agent %q, want confirm/draft", task.State, task.Agent)
	}
	if !strings.Contains(e.poster.last(), "draft") {
		t.Errorf("confirm prompt = %q", e.poster.last())
	}
}

func TestEstimateFromHistoryAppearsInPrompt(t *testing.T) {
	e := newTestEnv(t, nil)

	// One prior completed run seeds the estimator.
	e.send(t, "C1", "run the pipeline")
	e.send(t, "C1", "yes")

	e.send(t, "C2", "run the pipeline")
	if !strings.Contains(e.poster.last(), "based on 1 past run") {
		t.Errorf("confirm prompt after history = %q", e.poster.last())
	}
}

func TestConversationsRunIndependently(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "C1", "run the pipeline")
	e.send(t, "C2", "run the pipeline")
	e.send(t, "C1", "cancel")

	if e.reg.Len() != 1 {
		t.Fatalf("registry holds %d tasks, want 1", e.reg.Len())
	}
	if _, err := e.reg.Get("C2"); err != nil {
		t.Errorf("C2 task lost after C1 cancel: %v", err)
	}
}

func TestConcurrentConversations(t *testing.T) {
	e := newTestEnv(t, nil)

	const n = 10
	errCh := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv := fmt.Sprintf("C%d", i)
			for _, text := range []string{"run the pipeline", "yes"} {
				if err := e.d.HandleMessage(context.Background(), Inbound{ConversationID: conv, Channel: "chan", Text: text}); err != nil {
					errCh <- err
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("HandleMessage failed: %v", err)
	}

	if e.reg.Len() != 0 {
		t.Errorf("registry holds %d tasks after all runs completed", e.reg.Len())
	}
	if e.sink.count() != n {
		t.Errorf("history has %d records, want %d", e.sink.count(), n)
	}
}

func TestCancelWithNothingActive(t *testing.T) {
	e := newTestEnv(t, nil)

	e.send(t, "C1", "cancel")
	if !strings.Contains(e.poster.last(), "Nothing is running") {
		t.Errorf("reply = %q", e.poster.last())
	}
}
