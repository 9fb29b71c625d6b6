package prompt

import (
	"fmt"
	"strings"
	"time"

	"foodassist-backend/internal/prefs"
)

const systemPrompt = `你是一位专业的餐食推荐助手，精通各种菜系和营养搭配。
请根据用户的偏好和当前情况，给出贴心的餐食建议。`

const outputRequirements = `## 推荐要求
请提供以下格式的推荐：

【推荐菜品】菜品名称（包含中文名）
【所属菜系】菜系名称
【推荐理由】2-3句话说明为什么推荐这道菜，结合用户偏好
【营养信息】预估卡路里和主要营养成分
【参考价格】预估价格区间（如有把握）

注意：
1. 考虑用户的口味偏好和饮食限制
2. 避免推荐用户最近吃过的类似食物
3. 如果用户上传了图片，优先考虑与图片相关的菜品或类似风格
4. 语气要亲切自然，像朋友给建议
5. 菜品要具体，不要给出笼统的类别`

// maxRecentFoods bounds how many recent meals are listed in the prompt.
const maxRecentFoods = 5

// Input carries everything Build needs. Now is explicit so the builder
// stays pure.
type Input struct {
	ImageDescription string
	UserQuery        string
	Preferences      *prefs.Profile
	RecentFoods      []string
	Now              time.Time
}

// Build assembles the full model prompt. Identical inputs produce
// byte-identical output; there are no side effects.
func Build(in Input) string {
	var sb strings.Builder

	sb.WriteString(systemPrompt)
	sb.WriteString("\n\n")

	sb.WriteString("## 用户饮食偏好\n")
	sb.WriteString(preferenceSection(in.Preferences))
	sb.WriteString("\n\n")

	sb.WriteString("## 最近用餐记录\n")
	sb.WriteString(recentFoodsSection(in.RecentFoods))
	sb.WriteString("\n\n")

	sb.WriteString("## 当前场景\n")
	sb.WriteString(contextSection(in.ImageDescription, in.UserQuery, in.Now))
	sb.WriteString("\n\n")

	sb.WriteString(outputRequirements)
	sb.WriteString("\n")

	return sb.String()
}

func preferenceSection(profile *prefs.Profile) string {
	if profile == nil {
		return "- 暂无记录，请根据大众口味推荐"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "- 喜欢的菜系：%s\n", listOr(profile.FavoriteCuisines, "无特别偏好"))
	fmt.Fprintf(&sb, "- 不喜欢的食物：%s\n", listOr(profile.DislikedFoods, "无"))
	fmt.Fprintf(&sb, "- 饮食限制：%s\n", listOr(profile.DietaryRestrictions, "无"))
	fmt.Fprintf(&sb, "- 辣度偏好：%s\n", profile.SpiceLevelLabel())
	fmt.Fprintf(&sb, "- 分量偏好：%s", profile.PortionSize)
	return sb.String()
}

func recentFoodsSection(foods []string) string {
	if len(foods) == 0 {
		return "- 无记录"
	}

	var sb strings.Builder
	for i, food := range foods {
		if i == maxRecentFoods {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, food)
	}
	if len(foods) > maxRecentFoods {
		fmt.Fprintf(&sb, "... 还有 %d 条记录\n", len(foods)-maxRecentFoods)
	}
	sb.WriteString("（建议推荐不同种类以获得营养均衡）")
	return sb.String()
}

func contextSection(imageDescription, userQuery string, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- 当前时间：%s (%d:00)", MealPeriod(now.Hour()), now.Hour())

	hasImage := imageDescription != ""
	hasQuery := strings.TrimSpace(userQuery) != ""
	if hasImage {
		fmt.Fprintf(&sb, "\n- 图片内容：%s", imageDescription)
	}
	if hasQuery {
		fmt.Fprintf(&sb, "\n- 用户补充：\"%s\"", userQuery)
	}
	if !hasImage && !hasQuery {
		sb.WriteString("\n- 用户未提供具体输入，请根据时间和偏好主动推荐")
	}
	return sb.String()
}

func listOr(list []string, placeholder string) string {
	if len(list) == 0 {
		return placeholder
	}
	return strings.Join(list, ",")
}

// MealPeriod maps an hour 0..23 to its meal-period label. The ranges are
// contiguous and exhaustive; hours outside 0..23 map to 用餐时间.
func MealPeriod(hour int) string {
	switch {
	case hour >= 6 && hour <= 10:
		return "早餐时间"
	case hour >= 11 && hour <= 14:
		return "午餐时间"
	case hour >= 15 && hour <= 16:
		return "下午茶时间"
	case hour >= 17 && hour <= 21:
		return "晚餐时间"
	case (hour >= 22 && hour <= 23) || (hour >= 0 && hour <= 5):
		return "夜宵时间"
	default:
		return "用餐时间"
	}
}

// QuickQuery synthesizes the query used by quick recommendations from the
// current hour.
func QuickQuery(now time.Time) string {
	hour := now.Hour()
	switch {
	case hour >= 6 && hour <= 10:
		return "请为我推荐早餐"
	case hour >= 11 && hour <= 14:
		return "请为我推荐午餐"
	case hour >= 17 && hour <= 21:
		return "请为我推荐晚餐"
	default:
		return "请为我推荐夜宵"
	}
}
