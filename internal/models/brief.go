// internal/models/brief.go
package models

// CreativeBrief 用户提交的创意简报
type CreativeBrief struct {
	Topic        string `json:"topic" validate:"min=4"`        // 主题
	Audience     string `json:"audience" validate:"min=4"`     // 目标受众
	Goal         string `json:"goal" validate:"min=4"`         // 业务目标
	Duration     string `json:"duration" validate:"min=2"`     // 期望时长
	Tone         string `json:"tone" validate:"min=2"`         // 语气与视觉风格
	CallToAction string `json:"callToAction" validate:"min=2"` // 行动号召
	Language     string `json:"language" validate:"min=2"`     // 输出语言
}

// BriefFields 简报字段的JSON名称，按表单顺序排列
var BriefFields = []string{"topic", "audience", "goal", "duration", "tone", "callToAction", "language"}

// Field 按JSON名称读取字段
func (b CreativeBrief) Field(name string) (string, bool) {
	switch name {
	case "topic":
		return b.Topic, true
	case "audience":
		return b.Audience, true
	case "goal":
		return b.Goal, true
	case "duration":
		return b.Duration, true
	case "tone":
		return b.Tone, true
	case "callToAction":
		return b.CallToAction, true
	case "language":
		return b.Language, true
	default:
		return "", false
	}
}

// WithField 返回替换了指定字段的新简报
func (b CreativeBrief) WithField(name, value string) (CreativeBrief, bool) {
	switch name {
	case "topic":
		b.Topic = value
	case "audience":
		b.Audience = value
	case "goal":
		b.Goal = value
	case "duration":
		b.Duration = value
	case "tone":
		b.Tone = value
	case "callToAction":
		b.CallToAction = value
	case "language":
		b.Language = value
	default:
		return b, false
	}
	return b, true
}
