// internal/models/blueprint.go
package models

// ScriptBeat 脚本中的一个带时间戳的节拍
type ScriptBeat struct {
	Timestamp string `json:"timestamp"`
	Narration string `json:"narration"`
	OnScreen  string `json:"onScreen"`
	Emphasis  string `json:"emphasis"`
}

// Shot 镜头计划中的一个镜头
type Shot struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
	Notes       string `json:"notes"`
}

// Blueprint 经过校验的短视频制作蓝图
// 只能由模型输出校验后构造，构造后不再修改
type Blueprint struct {
	Title           string       `json:"title"`
	Hook            string       `json:"hook"`
	Summary         string       `json:"summary"`
	Script          []ScriptBeat `json:"script"`
	ShotPlan        []Shot       `json:"shotPlan"`
	CallToAction    string       `json:"callToAction"`
	Caption         string       `json:"caption"`
	Hashtags        []string     `json:"hashtags"`
	Broll           []string     `json:"broll"`
	SoundDesign     []string     `json:"soundDesign"`
	Tips            []string     `json:"tips"`
	ProductionNotes string       `json:"productionNotes"`
}
