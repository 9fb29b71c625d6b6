package recommend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"foodassist-backend/internal/engine"
	"foodassist-backend/internal/history"
	"foodassist-backend/internal/parser"
	"foodassist-backend/internal/prefs"
)

// fakeEngine lets tests script inference behavior.
type fakeEngine struct {
	mu       sync.Mutex
	ready    bool
	response string
	err      error
	// block, when non-nil, makes Infer wait until the channel closes or the
	// context is cancelled.
	block    chan struct{}
	released bool
}

func (f *fakeEngine) ModelAvailable() bool { return true }

func (f *fakeEngine) Initialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = true
	return nil
}

func (f *fakeEngine) Infer(ctx context.Context, image []byte, promptText string) (string, error) {
	f.mu.Lock()
	ready := f.ready
	block := f.block
	response, err := f.response, f.err
	f.mu.Unlock()

	if !ready {
		return "", engine.ErrInvalidState
	}
	if block != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-block:
		}
	}
	return response, err
}

func (f *fakeEngine) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
}

func newTestOrchestrator(eng engine.Engine) (*Orchestrator, *prefs.MemoryRepo, *history.MemoryRepo) {
	prefsRepo := prefs.NewMemoryRepo()
	historyRepo := history.NewMemoryRepo()
	orch := New(Config{
		Prefs:   prefsRepo,
		History: historyRepo,
		Engine:  eng,
		Now:     fixedNow,
	})
	return orch, prefsRepo, historyRepo
}

func TestInitializeTransitionsToReady(t *testing.T) {
	t.Parallel()

	orch, _, _ := newTestOrchestrator(engine.NewReference(0))

	var seen []State
	orch.Subscribe(func(tr Transition) {
		seen = append(seen, tr.State)
	})

	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	state, _ := orch.State()
	if state != StateReady {
		t.Fatalf("state = %v, want %v", state, StateReady)
	}
	if len(seen) != 2 || seen[0] != StateLoadingInit || seen[1] != StateReady {
		t.Fatalf("transitions = %v", seen)
	}
}

func TestInitializeFromReadyRejected(t *testing.T) {
	t.Parallel()

	orch, _, _ := newTestOrchestrator(engine.NewReference(0))
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := orch.Initialize(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady from ready state, got %v", err)
	}
}

type failingEngine struct {
	fakeEngine
}

func (f *failingEngine) Initialize(ctx context.Context) error {
	return errors.New("artifact missing")
}

func TestInitializeEngineFailureIsRetryable(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	failing := &failingEngine{}
	orch, _, _ := newTestOrchestrator(failing)

	if err := orch.Initialize(context.Background()); err == nil {
		t.Fatalf("expected initialization failure")
	}
	state, msg := orch.State()
	if state != StateErrorInit {
		t.Fatalf("state = %v, want %v", state, StateErrorInit)
	}
	if msg != "模型初始化失败" {
		t.Fatalf("message = %q", msg)
	}

	// ErrorInit allows a retry with a working engine.
	orch2, _, _ := newTestOrchestrator(failing)
	_ = orch2.Initialize(context.Background())
	orch2.engine = eng
	if err := orch2.Initialize(context.Background()); err != nil {
		t.Fatalf("retry after ErrorInit: %v", err)
	}
}

func TestRequestBeforeInitialize(t *testing.T) {
	t.Parallel()

	orch, _, _ := newTestOrchestrator(engine.NewReference(0))

	var transitions int
	orch.Subscribe(func(Transition) { transitions++ })

	_, err := orch.RequestRecommendation(context.Background(), Request{Query: "想吃辣的"})
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if transitions != 0 {
		t.Fatalf("gate violation must not publish transitions, saw %d", transitions)
	}
}

func TestRequestRecommendationHappyPath(t *testing.T) {
	t.Parallel()

	orch, _, historyRepo := newTestOrchestrator(engine.NewReference(0))
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	var msgs []string
	orch.Subscribe(func(tr Transition) {
		msgs = append(msgs, tr.State.String()+":"+tr.Message)
	})

	rec, err := orch.RequestRecommendation(context.Background(), Request{Query: "想吃点清淡的"})
	if err != nil {
		t.Fatalf("RequestRecommendation: %v", err)
	}

	if rec.FoodName != "清蒸鲈鱼" {
		t.Errorf("FoodName = %q", rec.FoodName)
	}
	if rec.Cuisine != "粤菜" {
		t.Errorf("Cuisine = %q", rec.Cuisine)
	}
	if rec.Confidence != DefaultConfidence {
		t.Errorf("Confidence = %v", rec.Confidence)
	}
	if rec.EstimatedPrice == nil || *rec.EstimatedPrice != 48 {
		t.Errorf("EstimatedPrice = %v", rec.EstimatedPrice)
	}
	if rec.Nutrition == nil || rec.Nutrition.Calories != 180 || rec.Nutrition.Protein != 35 {
		t.Errorf("Nutrition = %+v", rec.Nutrition)
	}

	records, err := historyRepo.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("history records = %d, want 1", len(records))
	}
	if records[0].ID != rec.ID {
		t.Fatalf("history ID %q != recommendation ID %q", records[0].ID, rec.ID)
	}

	want := []string{
		"loading_infer:正在分析…",
		"loading_infer:正在生成推荐…",
		"success:",
	}
	if len(msgs) != len(want) {
		t.Fatalf("transitions = %v", msgs)
	}
	for i, w := range want {
		if msgs[i] != w {
			t.Fatalf("transition %d = %q, want %q", i, msgs[i], w)
		}
	}

	if got := orch.Recommendations(); len(got) != 1 || got[0].ID != rec.ID {
		t.Fatalf("Recommendations = %v", got)
	}
}

func TestRequestRecommendationSpicyProfile(t *testing.T) {
	t.Parallel()

	orch, _, _ := newTestOrchestrator(engine.NewReference(0))
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	_, err := orch.UpdatePreferences(context.Background(), func(p prefs.Profile) prefs.Profile {
		p.SpiceLevel = 4
		p.FavoriteCuisines = []string{"川菜"}
		return p
	})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}

	rec, err := orch.RequestRecommendation(context.Background(), Request{Query: "想吃辣的"})
	if err != nil {
		t.Fatalf("RequestRecommendation: %v", err)
	}

	if rec.FoodName != "麻婆豆腐" {
		t.Errorf("FoodName = %q", rec.FoodName)
	}
	if rec.Cuisine != "川菜" {
		t.Errorf("Cuisine = %q", rec.Cuisine)
	}
	if rec.EstimatedPrice == nil || *rec.EstimatedPrice != 18 {
		t.Errorf("EstimatedPrice = %v", rec.EstimatedPrice)
	}
	if rec.Nutrition == nil || rec.Nutrition.Calories != 280 {
		t.Errorf("Nutrition = %+v", rec.Nutrition)
	}
}

// promptCapturingEngine records the prompt handed to Infer while
// delegating to the wrapped engine.
type promptCapturingEngine struct {
	engine.Engine
	mu     sync.Mutex
	prompt string
}

func (e *promptCapturingEngine) Infer(ctx context.Context, image []byte, promptText string) (string, error) {
	e.mu.Lock()
	e.prompt = promptText
	e.mu.Unlock()
	return e.Engine.Infer(ctx, image, promptText)
}

func (e *promptCapturingEngine) captured() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prompt
}

func TestRequestRecommendationLightQueryOverridesSpicyProfile(t *testing.T) {
	t.Parallel()

	eng := &promptCapturingEngine{Engine: engine.NewReference(0)}
	orch, _, historyRepo := newTestOrchestrator(eng)
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	_, err := orch.UpdatePreferences(context.Background(), func(p prefs.Profile) prefs.Profile {
		p.SpiceLevel = 4
		p.FavoriteCuisines = []string{"川菜"}
		return p
	})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	err = historyRepo.Insert(context.Background(), history.Record{
		ID:        "rec-earlier",
		FoodName:  "麻婆豆腐",
		Cuisine:   "川菜",
		Timestamp: fixedNow().Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rec, err := orch.RequestRecommendation(context.Background(), Request{Query: "想吃清淡一点的"})
	if err != nil {
		t.Fatalf("RequestRecommendation: %v", err)
	}

	promptText := eng.captured()
	for _, want := range []string{
		"- 辣度偏好：较辣",
		"麻婆豆腐",
		"- 用户补充：\"想吃清淡一点的\"",
	} {
		if !strings.Contains(promptText, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// 清淡 outranks the 辣 and 川 the profile puts into the prompt.
	if rec.FoodName != "清蒸鲈鱼" {
		t.Errorf("FoodName = %q", rec.FoodName)
	}
	if rec.Cuisine != "粤菜" {
		t.Errorf("Cuisine = %q", rec.Cuisine)
	}
}

func TestRequestRecommendationInFlightRejected(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{
		response: "【推荐菜品】牛肉面\n【所属菜系】西北菜",
		block:    make(chan struct{}),
	}
	orch, _, historyRepo := newTestOrchestrator(eng)
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	started := make(chan struct{})
	var transitions []State
	var mu sync.Mutex
	orch.Subscribe(func(tr Transition) {
		mu.Lock()
		transitions = append(transitions, tr.State)
		mu.Unlock()
		if tr.Message == "正在生成推荐…" {
			close(started)
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := orch.RequestRecommendation(context.Background(), Request{Query: "第一单"})
		done <- err
	}()
	<-started

	mu.Lock()
	before := len(transitions)
	mu.Unlock()

	if _, err := orch.RequestRecommendation(context.Background(), Request{Query: "第二单"}); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}

	mu.Lock()
	after := len(transitions)
	mu.Unlock()
	if after != before {
		t.Fatalf("rejected request must not publish transitions")
	}

	count, err := historyRepo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected request must not persist history, count = %d", count)
	}

	close(eng.block)
	if err := <-done; err != nil {
		t.Fatalf("first request failed: %v", err)
	}
}

func TestRequestRecommendationCancelled(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{block: make(chan struct{})}
	orch, _, historyRepo := newTestOrchestrator(eng)
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := orch.RequestRecommendation(ctx, Request{Query: "想吃辣的"})
		done <- err
	}()

	// Give the pipeline a moment to reach the blocked inference call.
	time.Sleep(20 * time.Millisecond)
	cancel()

	err := <-done
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}

	state, msg := orch.State()
	if state != StateCancelled || msg != "已取消" {
		t.Fatalf("state = %v %q", state, msg)
	}

	count, _ := historyRepo.Count(context.Background())
	if count != 0 {
		t.Fatalf("cancelled request must not persist history")
	}

	// Cancelled is a resting state; a fresh request is accepted.
	eng.mu.Lock()
	eng.block = nil
	eng.response = "【推荐菜品】牛肉面\n【所属菜系】西北菜"
	eng.mu.Unlock()
	if _, err := orch.RequestRecommendation(context.Background(), Request{Query: "再来一次"}); err != nil {
		t.Fatalf("request after cancel: %v", err)
	}
}

func TestRequestRecommendationParserFailure(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{response: "今天没有想法"}
	orch, _, _ := newTestOrchestrator(eng)
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	_, err := orch.RequestRecommendation(context.Background(), Request{Query: "随便"})
	if !errors.Is(err, parser.ErrMissingFoodName) {
		t.Fatalf("expected ErrMissingFoodName, got %v", err)
	}

	state, msg := orch.State()
	if state != StateErrorInfer {
		t.Fatalf("state = %v, want %v", state, StateErrorInfer)
	}
	if msg == "" {
		t.Fatalf("expected failure message")
	}

	// ErrorInfer allows another attempt.
	eng.mu.Lock()
	eng.response = "【推荐菜品】白灼虾\n【所属菜系】粤菜"
	eng.mu.Unlock()
	if _, err := orch.RequestRecommendation(context.Background(), Request{Query: "再试"}); err != nil {
		t.Fatalf("retry after ErrorInfer: %v", err)
	}
}

func TestAcceptFeedbackMergesCuisine(t *testing.T) {
	t.Parallel()

	orch, prefsRepo, historyRepo := newTestOrchestrator(engine.NewReference(0))
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	rec, err := orch.RequestRecommendation(context.Background(), Request{Query: "想吃点清淡的"})
	if err != nil {
		t.Fatalf("RequestRecommendation: %v", err)
	}

	if err := orch.AcceptFeedback(context.Background(), rec, true); err != nil {
		t.Fatalf("AcceptFeedback: %v", err)
	}

	records, _ := historyRepo.Recent(context.Background(), 10)
	if len(records) != 1 || records[0].Liked == nil || !*records[0].Liked {
		t.Fatalf("history liked flag not set: %+v", records)
	}

	saved, err := prefsRepo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get profile: %v", err)
	}
	if len(saved.FavoriteCuisines) != 1 || saved.FavoriteCuisines[0] != "粤菜" {
		t.Fatalf("FavoriteCuisines = %v", saved.FavoriteCuisines)
	}

	// Liking the same cuisine twice leaves it listed once.
	if err := orch.AcceptFeedback(context.Background(), rec, true); err != nil {
		t.Fatalf("AcceptFeedback again: %v", err)
	}
	saved, _ = prefsRepo.Get(context.Background())
	if len(saved.FavoriteCuisines) != 1 {
		t.Fatalf("duplicate like changed list: %v", saved.FavoriteCuisines)
	}
}

func TestAcceptFeedbackDislikeSkipsProfile(t *testing.T) {
	t.Parallel()

	orch, prefsRepo, _ := newTestOrchestrator(engine.NewReference(0))
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	rec, err := orch.RequestRecommendation(context.Background(), Request{Query: "想吃点清淡的"})
	if err != nil {
		t.Fatalf("RequestRecommendation: %v", err)
	}

	if err := orch.AcceptFeedback(context.Background(), rec, false); err != nil {
		t.Fatalf("AcceptFeedback: %v", err)
	}
	if _, err := prefsRepo.Get(context.Background()); !errors.Is(err, prefs.ErrNotFound) {
		t.Fatalf("dislike must not create a profile, err = %v", err)
	}
}

func TestAcceptFeedbackUnknownRecord(t *testing.T) {
	t.Parallel()

	orch, _, _ := newTestOrchestrator(engine.NewReference(0))
	err := orch.AcceptFeedback(context.Background(), Recommendation{ID: "missing"}, true)
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected history.ErrNotFound, got %v", err)
	}
}

func TestUpdatePreferencesPersists(t *testing.T) {
	t.Parallel()

	orch, prefsRepo, _ := newTestOrchestrator(engine.NewReference(0))

	updated, err := orch.UpdatePreferences(context.Background(), func(p prefs.Profile) prefs.Profile {
		p.SpiceLevel = prefs.SpiceExtraHot
		return p
	})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if updated.SpiceLevel != prefs.SpiceExtraHot {
		t.Fatalf("SpiceLevel = %d", updated.SpiceLevel)
	}
	if !updated.UpdatedAt.Equal(fixedNow()) {
		t.Fatalf("UpdatedAt = %v", updated.UpdatedAt)
	}

	saved, err := prefsRepo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if saved.SpiceLevel != prefs.SpiceExtraHot {
		t.Fatalf("saved SpiceLevel = %d", saved.SpiceLevel)
	}

	got := orch.Profile()
	if got == nil || got.SpiceLevel != prefs.SpiceExtraHot {
		t.Fatalf("in-memory profile = %+v", got)
	}
}

func TestClearResultsKeepsHistory(t *testing.T) {
	t.Parallel()

	orch, _, historyRepo := newTestOrchestrator(engine.NewReference(0))
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := orch.RequestRecommendation(context.Background(), Request{Query: "想吃辣的"}); err != nil {
		t.Fatalf("RequestRecommendation: %v", err)
	}

	orch.ClearResults()
	if got := orch.Recommendations(); len(got) != 0 {
		t.Fatalf("Recommendations after clear = %v", got)
	}
	count, _ := historyRepo.Count(context.Background())
	if count != 1 {
		t.Fatalf("history count = %d, want 1", count)
	}
	state, _ := orch.State()
	if state != StateSuccess {
		t.Fatalf("clear must not change state, got %v", state)
	}
}

func TestShutdownReleasesEngine(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	orch, _, _ := newTestOrchestrator(eng)
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	orch.Shutdown()
	orch.Shutdown() // idempotent

	eng.mu.Lock()
	released := eng.released
	eng.mu.Unlock()
	if !released {
		t.Fatalf("engine not released")
	}

	if _, err := orch.RequestRecommendation(context.Background(), Request{Query: "想吃辣的"}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady after shutdown, got %v", err)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	orch, _, _ := newTestOrchestrator(engine.NewReference(0))

	var calls int
	unsubscribe := orch.Subscribe(func(Transition) { calls++ })
	unsubscribe()

	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if calls != 0 {
		t.Fatalf("unsubscribed observer called %d times", calls)
	}
}

func TestQuickRecommendUsesMealPeriodQuery(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{response: "【推荐菜品】番茄鸡蛋面\n【所属菜系】家常菜"}
	orch, _, _ := newTestOrchestrator(eng)
	if err := orch.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	rec, err := orch.QuickRecommend(context.Background())
	if err != nil {
		t.Fatalf("QuickRecommend: %v", err)
	}
	if rec.FoodName != "番茄鸡蛋面" {
		t.Fatalf("FoodName = %q", rec.FoodName)
	}
}
