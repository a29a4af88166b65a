// internal/services/blueprint_schema.go
package services

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/Corphon/ShortsArchitect/internal/errors"
	"github.com/Corphon/ShortsArchitect/internal/models"
)

// 模型输出的解码结构，指针字段用于区分缺失与空值
type beatPayload struct {
	Timestamp *string `json:"timestamp" validate:"required"`
	Narration *string `json:"narration" validate:"required"`
	OnScreen  *string `json:"onScreen" validate:"required"`
	Emphasis  *string `json:"emphasis" validate:"required"`
}

type shotPayload struct {
	Label       *string `json:"label" validate:"required"`
	Description *string `json:"description" validate:"required"`
	Duration    *string `json:"duration" validate:"required"`
	Notes       *string `json:"notes"`
}

type blueprintPayload struct {
	Title           *string       `json:"title" validate:"required,min=1"`
	Hook            *string       `json:"hook" validate:"required,min=1"`
	Summary         *string       `json:"summary" validate:"required,min=1"`
	Script          []beatPayload `json:"script" validate:"required,min=5,dive"`
	ShotPlan        []shotPayload `json:"shotPlan" validate:"required,min=5,dive"`
	CallToAction    *string       `json:"callToAction" validate:"required,min=1"`
	Caption         *string       `json:"caption" validate:"required,min=1"`
	Hashtags        []*string     `json:"hashtags" validate:"required,min=6,max=12,dive,required"`
	Broll           []*string     `json:"broll" validate:"required,min=5,dive,required"`
	SoundDesign     []*string     `json:"soundDesign" validate:"required,min=3,dive,required"`
	Tips            []*string     `json:"tips" validate:"required,min=3,dive,required"`
	ProductionNotes *string       `json:"productionNotes" validate:"required"`
}

// 各层对象允许的键，必须与字段名完全一致
var (
	blueprintKeys = jsonKeys(blueprintPayload{})
	beatKeys      = jsonKeys(beatPayload{})
	shotKeys      = jsonKeys(shotPayload{})
)

func jsonKeys(v interface{}) map[string]bool {
	t := reflect.TypeOf(v)
	keys := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]; name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}

// BlueprintSchema 校验模型输出并构造 Blueprint
type BlueprintSchema struct {
	validate *validator.Validate
}

// NewBlueprintSchema 创建蓝图结构校验器
func NewBlueprintSchema() *BlueprintSchema {
	return &BlueprintSchema{validate: newSchemaValidator()}
}

// ParseBlueprint 严格解析模型文本，任何不符合结构的输出都返回合成错误
func (s *BlueprintSchema) ParseBlueprint(text string) (*models.Blueprint, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewSynthesisError("No content returned from model.", nil)
	}

	// encoding/json 匹配键时不区分大小写，先去掉不完全一致的键
	exact, err := exactKeysJSON([]byte(text))
	if err != nil {
		return nil, apperrors.NewSynthesisError("Model returned invalid JSON: "+err.Error(), err)
	}

	var payload blueprintPayload
	if err := json.Unmarshal(exact, &payload); err != nil {
		return nil, apperrors.NewSynthesisError("Model returned invalid JSON: "+err.Error(), err)
	}

	if err := s.validate.Struct(payload); err != nil {
		fields := make(map[string][]string)
		if cerr := collectFieldErrors(err, fields); cerr != nil {
			return nil, apperrors.NewSynthesisError(cerr.Error(), cerr)
		}
		return nil, apperrors.NewSynthesisError(
			"Model response did not match the blueprint schema: "+apperrors.FormatFields(fields), err)
	}

	return payload.toBlueprint(), nil
}

// exactKeysJSON 重新编码模型输出，只保留顶层及 script/shotPlan 元素中名称完全匹配的键
func exactKeysJSON(data []byte) ([]byte, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	filterKeys(top, blueprintKeys)

	for key, allowed := range map[string]map[string]bool{"script": beatKeys, "shotPlan": shotKeys} {
		raw, ok := top[key]
		if !ok {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			// 类型错误交给结构解码报告
			continue
		}
		for i, item := range items {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
				continue
			}
			filterKeys(obj, allowed)
			encoded, err := json.Marshal(obj)
			if err != nil {
				return nil, err
			}
			items[i] = encoded
		}
		encoded, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		top[key] = encoded
	}

	return json.Marshal(top)
}

func filterKeys(obj map[string]json.RawMessage, allowed map[string]bool) {
	for key := range obj {
		if !allowed[key] {
			delete(obj, key)
		}
	}
}

func derefAll(items []*string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out
}

func (p blueprintPayload) toBlueprint() *models.Blueprint {
	bp := &models.Blueprint{
		Title:           *p.Title,
		Hook:            *p.Hook,
		Summary:         *p.Summary,
		Script:          make([]models.ScriptBeat, 0, len(p.Script)),
		ShotPlan:        make([]models.Shot, 0, len(p.ShotPlan)),
		CallToAction:    *p.CallToAction,
		Caption:         *p.Caption,
		Hashtags:        derefAll(p.Hashtags),
		Broll:           derefAll(p.Broll),
		SoundDesign:     derefAll(p.SoundDesign),
		Tips:            derefAll(p.Tips),
		ProductionNotes: *p.ProductionNotes,
	}

	for _, beat := range p.Script {
		bp.Script = append(bp.Script, models.ScriptBeat{
			Timestamp: *beat.Timestamp,
			Narration: *beat.Narration,
			OnScreen:  *beat.OnScreen,
			Emphasis:  *beat.Emphasis,
		})
	}

	for _, shot := range p.ShotPlan {
		notes := ""
		if shot.Notes != nil {
			notes = *shot.Notes
		}
		bp.ShotPlan = append(bp.ShotPlan, models.Shot{
			Label:       *shot.Label,
			Description: *shot.Description,
			Duration:    *shot.Duration,
			Notes:       notes,
		})
	}

	return bp
}
