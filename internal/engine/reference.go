package engine

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// DefaultLatency simulates model inference time for the reference engine.
const DefaultLatency = 1500 * time.Millisecond

// Dish is one entry of the reference engine's fixed catalog.
type Dish struct {
	Name      string
	Cuisine   string
	Reason    string
	Price     string
	Nutrition string
}

var catalog = []Dish{
	{
		Name:      "麻婆豆腐",
		Cuisine:   "川菜",
		Reason:    "经典川菜代表，麻辣鲜香，口感嫩滑。豆腐营养丰富，搭配肉末更有层次感。",
		Price:     "18-28元",
		Nutrition: "约280卡 | 蛋白质18g | 碳水12g | 脂肪16g",
	},
	{
		Name:      "清蒸鲈鱼",
		Cuisine:   "粤菜",
		Reason:    "清淡健康，鱼肉鲜嫩，富含优质蛋白和Omega-3脂肪酸。蒸制保留了食材原味。",
		Price:     "48-68元",
		Nutrition: "约180卡 | 蛋白质35g | 碳水2g | 脂肪6g",
	},
	{
		Name:      "番茄鸡蛋面",
		Cuisine:   "家常菜",
		Reason:    "简单美味，营养均衡。番茄富含维生素C，鸡蛋提供优质蛋白，面条提供能量。",
		Price:     "12-20元",
		Nutrition: "约420卡 | 蛋白质16g | 碳水58g | 脂肪12g",
	},
	{
		Name:      "宫保鸡丁",
		Cuisine:   "川菜",
		Reason:    "鸡肉嫩滑，花生酥脆，酸甜微辣。是一道开胃下饭的经典菜肴。",
		Price:     "28-38元",
		Nutrition: "约320卡 | 蛋白质26g | 碳水18g | 脂肪15g",
	},
	{
		Name:      "白灼虾",
		Cuisine:   "粤菜",
		Reason:    "原汁原味，虾肉鲜甜Q弹。低脂高蛋白，非常适合健康饮食。",
		Price:     "58-88元",
		Nutrition: "约150卡 | 蛋白质30g | 碳水1g | 脂肪2g",
	},
	{
		Name:      "牛肉面",
		Cuisine:   "西北菜",
		Reason:    "汤头浓郁，牛肉软烂，面条劲道。冬日暖身佳品，营养丰富。",
		Price:     "20-35元",
		Nutrition: "约480卡 | 蛋白质22g | 碳水65g | 脂肪14g",
	},
}

// Reference is the deterministic stand-in for a real model. It selects a
// catalog dish by keyword-matching the prompt and renders the five-line
// tagged response. Calls are independent; only the last selection is kept
// for diagnostics.
type Reference struct {
	latency time.Duration

	mu    sync.Mutex
	state state
	last  *Dish
}

// NewReference constructs a reference engine. A negative latency selects
// DefaultLatency; zero disables the simulated delay.
func NewReference(latency time.Duration) *Reference {
	if latency < 0 {
		latency = DefaultLatency
	}
	return &Reference{latency: latency}
}

// ModelAvailable always reports true: the reference engine needs no artifact.
func (e *Reference) ModelAvailable() bool { return true }

// Initialize moves the engine to Ready.
func (e *Reference) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateReleased {
		return ErrInvalidState
	}
	e.state = stateReady
	return nil
}

// Infer waits the simulated latency, selects a dish by prompt keywords and
// renders the tagged response. The image is accepted but unused.
func (e *Reference) Infer(ctx context.Context, image []byte, promptText string) (string, error) {
	_ = image

	e.mu.Lock()
	ready := e.state == stateReady
	e.mu.Unlock()
	if !ready {
		return "", ErrInvalidState
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if e.latency > 0 {
		timer := time.NewTimer(e.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	dish := selectDish(promptText)
	e.mu.Lock()
	e.last = &dish
	e.mu.Unlock()

	return renderResponse(dish), nil
}

// Release moves the engine to its terminal state.
func (e *Reference) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = stateReleased
	e.last = nil
}

// LastSelection returns the dish chosen by the most recent Infer call.
func (e *Reference) LastSelection() (Dish, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return Dish{}, false
	}
	return *e.last, true
}

// selectDish scans the prompt for ordered keyword groups and falls back to
// a uniformly random catalog entry.
func selectDish(promptText string) Dish {
	switch {
	case containsAny(promptText, "清淡", "健康", "减肥"):
		return findDish(func(d Dish) bool { return d.Name == "清蒸鲈鱼" || d.Name == "白灼虾" }, 1)
	case containsAny(promptText, "辣", "川", "麻辣"):
		return findDish(func(d Dish) bool { return d.Cuisine == "川菜" }, 0)
	case containsAny(promptText, "简单", "快", "家常"):
		return findDish(func(d Dish) bool { return d.Cuisine == "家常菜" }, 2)
	case containsAny(promptText, "牛肉", "面"):
		return findDish(func(d Dish) bool { return strings.Contains(d.Name, "牛肉") }, 5)
	default:
		return catalog[rand.Intn(len(catalog))]
	}
}

func findDish(match func(Dish) bool, fallback int) Dish {
	for _, d := range catalog {
		if match(d) {
			return d
		}
	}
	return catalog[fallback]
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func renderResponse(dish Dish) string {
	return fmt.Sprintf(`【推荐菜品】%s
【所属菜系】%s
【推荐理由】%s
【营养信息】%s
【参考价格】%s`, dish.Name, dish.Cuisine, dish.Reason, dish.Nutrition, dish.Price)
}
