package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"foodassist-backend/internal/engine"
	"foodassist-backend/internal/history"
	"foodassist-backend/internal/parser"
	"foodassist-backend/internal/prefs"
	"foodassist-backend/internal/prompt"
	"foodassist-backend/internal/shared/metrics"
	"foodassist-backend/internal/shared/telemetry"
)

// recentHistoryLimit bounds how many history entries feed the prompt.
const recentHistoryLimit = 10

// Config carries the orchestrator's injected dependencies.
type Config struct {
	Prefs   prefs.Repo
	History history.Repo
	Engine  engine.Engine
	// Now overrides the clock for tests. Nil selects time.Now.
	Now func() time.Time
}

// Request is one recommendation request. Image is an opaque in-memory
// image; ImagePath is the storage key of an already-persisted copy, kept
// on the history record.
type Request struct {
	Query     string
	Image     []byte
	ImagePath *string
}

// Orchestrator sequences prompt build, inference, parsing, persistence and
// feedback for one session. State transitions are published synchronously
// and in a single global order.
type Orchestrator struct {
	prefs   prefs.Repo
	history history.Repo
	engine  engine.Engine
	now     func() time.Time

	mu              sync.Mutex
	state           State
	stateMsg        string
	profile         *prefs.Profile
	recommendations []Recommendation
	observers       map[int]Observer
	nextObserver    int
	inFlight        bool
	released        bool
}

// New constructs an orchestrator in the Idle state.
func New(cfg Config) *Orchestrator {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{
		prefs:     cfg.Prefs,
		history:   cfg.History,
		engine:    cfg.Engine,
		now:       now,
		state:     StateIdle,
		observers: make(map[int]Observer),
	}
}

// Subscribe registers an observer for state transitions and returns an
// unsubscribe function.
func (o *Orchestrator) Subscribe(fn Observer) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextObserver
	o.nextObserver++
	o.observers[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.observers, id)
	}
}

// State returns the current state and its message.
func (o *Orchestrator) State() (State, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.stateMsg
}

// setState publishes the transition to all observers before returning.
func (o *Orchestrator) setState(state State, msg string) {
	o.mu.Lock()
	o.state = state
	o.stateMsg = msg
	observers := make([]Observer, 0, len(o.observers))
	for _, fn := range o.observers {
		observers = append(observers, fn)
	}
	o.mu.Unlock()

	transition := Transition{State: state, Message: msg}
	for _, fn := range observers {
		fn(transition)
	}
}

// Initialize loads the preference profile and initializes the engine.
// A missing profile is not an error. Callable again after ErrorInit as the
// explicit retry trigger.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	if o.released {
		o.mu.Unlock()
		return ErrNotReady
	}
	if o.state != StateIdle && o.state != StateErrorInit {
		o.mu.Unlock()
		return fmt.Errorf("initialize from %s: %w", o.state, ErrNotReady)
	}
	o.mu.Unlock()

	o.setState(StateLoadingInit, "正在准备AI模型…")

	profile, err := o.prefs.Get(ctx)
	switch {
	case err == nil:
		o.mu.Lock()
		o.profile = &profile
		o.mu.Unlock()
	case errors.Is(err, prefs.ErrNotFound):
		// No profile yet; the prompt builder handles the absence.
	default:
		o.setState(StateErrorInit, fmt.Sprintf("加载偏好失败：%s", err))
		return fmt.Errorf("load profile: %w", err)
	}

	if err := o.engine.Initialize(ctx); err != nil {
		telemetry.Error("recommendation.init", map[string]any{"error": err.Error()})
		o.setState(StateErrorInit, "模型初始化失败")
		return fmt.Errorf("engine initialize: %w", err)
	}

	o.setState(StateReady, "")
	return nil
}

// RequestRecommendation runs the full pipeline for one request. The engine
// must be ready and no other inference may be in flight; violations fail
// immediately without a state transition.
func (o *Orchestrator) RequestRecommendation(ctx context.Context, req Request) (Recommendation, error) {
	o.mu.Lock()
	if o.released {
		o.mu.Unlock()
		return Recommendation{}, ErrNotReady
	}
	switch o.state {
	case StateReady, StateSuccess, StateErrorInfer, StateCancelled:
	default:
		o.mu.Unlock()
		return Recommendation{}, ErrNotReady
	}
	if o.inFlight {
		o.mu.Unlock()
		return Recommendation{}, ErrInFlight
	}
	o.inFlight = true
	var profile *prefs.Profile
	if o.profile != nil {
		copied := *o.profile
		profile = &copied
	}
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	metrics.IncRecommendationStarted()
	startedAt := o.now()
	o.setState(StateLoadingInfer, "正在分析…")

	rec, err := o.runPipeline(ctx, req, profile)
	if err != nil {
		if isCancelled(ctx, err) {
			metrics.IncRecommendationCancelled()
			o.setState(StateCancelled, "已取消")
			return Recommendation{}, fmt.Errorf("%w: %s", ErrCancelled, err)
		}
		metrics.IncRecommendationFailed()
		o.setState(StateErrorInfer, err.Error())
		return Recommendation{}, err
	}

	o.mu.Lock()
	o.recommendations = append(o.recommendations, rec)
	o.mu.Unlock()

	metrics.IncRecommendationCompleted()
	metrics.ObserveInferenceDurationMs(float64(o.now().Sub(startedAt).Microseconds()) / 1000.0)
	telemetry.Info("recommendation.status", map[string]any{
		"recommendation_id": rec.ID,
		"food_name":         rec.FoodName,
		"cuisine":           rec.Cuisine,
		"status":            StateSuccess.String(),
	})
	o.setState(StateSuccess, "")
	return rec, nil
}

func (o *Orchestrator) runPipeline(ctx context.Context, req Request, profile *prefs.Profile) (Recommendation, error) {
	recent, err := o.history.Recent(ctx, recentHistoryLimit)
	if err != nil {
		return Recommendation{}, fmt.Errorf("load history: %w", err)
	}
	recentNames := make([]string, 0, len(recent))
	for _, record := range recent {
		recentNames = append(recentNames, record.FoodName)
	}

	promptText := prompt.Build(prompt.Input{
		UserQuery:   req.Query,
		Preferences: profile,
		RecentFoods: recentNames,
		Now:         o.now(),
	})

	o.setState(StateLoadingInfer, "正在生成推荐…")
	response, err := o.engine.Infer(ctx, req.Image, promptText)
	if err != nil {
		return Recommendation{}, fmt.Errorf("推理出错：%w", err)
	}

	parsed, err := parser.Parse(response)
	if err != nil {
		return Recommendation{}, err
	}

	rec := newRecommendation(parsed, o.now())
	record := history.Record{
		ID:        rec.ID,
		FoodName:  rec.FoodName,
		Cuisine:   rec.Cuisine,
		Timestamp: rec.Timestamp,
		ImagePath: req.ImagePath,
	}
	if err := o.history.Insert(ctx, record); err != nil {
		return Recommendation{}, fmt.Errorf("save history: %w", err)
	}
	return rec, nil
}

// QuickRecommend requests a recommendation with a query synthesized from
// the current hour and no image.
func (o *Orchestrator) QuickRecommend(ctx context.Context) (Recommendation, error) {
	return o.RequestRecommendation(ctx, Request{Query: prompt.QuickQuery(o.now())})
}

// AcceptFeedback records like/dislike on the recommendation's history
// record. A like also merges the cuisine into the profile's favorites.
// Feedback is independent of the state machine.
func (o *Orchestrator) AcceptFeedback(ctx context.Context, rec Recommendation, liked bool) error {
	if err := o.history.SetLiked(ctx, rec.ID, liked); err != nil {
		return fmt.Errorf("set liked: %w", err)
	}
	if !liked {
		return nil
	}
	_, err := o.UpdatePreferences(ctx, func(p prefs.Profile) prefs.Profile {
		return p.AddFavoriteCuisine(rec.Cuisine)
	})
	return err
}

// UpdatePreferences applies a pure mutator to the current (or default)
// profile, persists the result and updates the in-memory copy.
func (o *Orchestrator) UpdatePreferences(ctx context.Context, mutate func(prefs.Profile) prefs.Profile) (prefs.Profile, error) {
	o.mu.Lock()
	current := prefs.DefaultProfile()
	if o.profile != nil {
		current = *o.profile
	}
	o.mu.Unlock()

	updated := mutate(current)
	updated.UpdatedAt = o.now()
	if err := o.prefs.Save(ctx, updated); err != nil {
		return prefs.Profile{}, fmt.Errorf("save profile: %w", err)
	}

	o.mu.Lock()
	o.profile = &updated
	o.mu.Unlock()
	return updated, nil
}

// Profile returns a copy of the in-memory profile, or nil when none is
// loaded yet.
func (o *Orchestrator) Profile() *prefs.Profile {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.profile == nil {
		return nil
	}
	copied := *o.profile
	return &copied
}

// Recommendations returns a copy of the in-memory recommendation list.
func (o *Orchestrator) Recommendations() []Recommendation {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Recommendation, len(o.recommendations))
	copy(out, o.recommendations)
	return out
}

// ClearResults empties the in-memory recommendation list. Persisted history
// and the session state are untouched.
func (o *Orchestrator) ClearResults() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recommendations = nil
}

// Shutdown releases the engine. Irreversible for this instance.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	if o.released {
		o.mu.Unlock()
		return
	}
	o.released = true
	o.mu.Unlock()
	o.engine.Release()
}

func isCancelled(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		ctx.Err() != nil
}
