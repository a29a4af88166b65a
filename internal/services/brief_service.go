// internal/services/brief_service.go
package services

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/Corphon/ShortsArchitect/internal/errors"
	"github.com/Corphon/ShortsArchitect/internal/models"
)

// BriefBodyField 请求体本身不是 JSON 对象时使用的错误键
const BriefBodyField = "body"

// BriefValidator 校验创意简报，不做任何外部调用
type BriefValidator struct {
	validate *validator.Validate
}

// NewBriefValidator 创建简报校验器
func NewBriefValidator() *BriefValidator {
	return &BriefValidator{validate: newSchemaValidator()}
}

// ParsePayload 解析任意 JSON 请求体并校验每个字段
// 所有违规字段一次性报告，通过时返回原样的简报
func (v *BriefValidator) ParsePayload(body []byte) (models.CreativeBrief, error) {
	var brief models.CreativeBrief

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return brief, apperrors.NewValidationError("invalid brief", map[string][]string{
			BriefBodyField: {fmt.Sprintf("Expected object, received %s", payloadTypeName(body))},
		})
	}

	fields := make(map[string][]string)
	typed := make(map[string]bool, len(models.BriefFields))
	for _, name := range models.BriefFields {
		value, ok := raw[name]
		if !ok {
			fields[name] = append(fields[name], "Required")
			continue
		}

		var s string
		if err := json.Unmarshal(value, &s); err != nil || jsonTypeName(value) != "string" {
			fields[name] = append(fields[name], fmt.Sprintf("Expected string, received %s", jsonTypeName(value)))
			continue
		}
		brief, _ = brief.WithField(name, s)
		typed[name] = true
	}

	// 只对类型正确的字段报告长度问题，避免同一字段重复报错
	if err := v.validate.Struct(brief); err != nil {
		lengthErrors := make(map[string][]string)
		if err := collectFieldErrors(err, lengthErrors); err != nil {
			return models.CreativeBrief{}, err
		}
		for name, msgs := range lengthErrors {
			if typed[name] {
				fields[name] = append(fields[name], msgs...)
			}
		}
	}

	if len(fields) > 0 {
		return models.CreativeBrief{}, apperrors.NewValidationError("invalid brief", fields)
	}
	return brief, nil
}

// Validate 校验已类型化的简报
func (v *BriefValidator) Validate(brief models.CreativeBrief) error {
	err := v.validate.Struct(brief)
	if err == nil {
		return nil
	}

	fields := make(map[string][]string)
	if err := collectFieldErrors(err, fields); err != nil {
		return err
	}
	return apperrors.NewValidationError("invalid brief", fields)
}

func payloadTypeName(body []byte) string {
	var probe interface{}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "invalid JSON"
	}
	return jsonTypeName(body)
}
