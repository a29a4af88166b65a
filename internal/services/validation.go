// internal/services/validation.go
package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newSchemaValidator 创建使用 JSON 字段名报告错误的校验器
func newSchemaValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// collectFieldErrors 将 validator 错误整理为 字段路径 -> 错误描述 列表
func collectFieldErrors(err error, into map[string][]string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	for _, fe := range verrs {
		path := fieldPath(fe.Namespace())
		into[path] = append(into[path], describeFieldError(fe))
	}
	return nil
}

// fieldPath 去掉命名空间中的根结构体名
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func describeFieldError(fe validator.FieldError) string {
	kind := fe.Kind()
	if kind == reflect.Ptr {
		kind = fe.Type().Elem().Kind()
	}

	switch fe.Tag() {
	case "required":
		return "Required"
	case "min":
		if kind == reflect.Slice || kind == reflect.Array {
			return fmt.Sprintf("Array must contain at least %s element(s)", fe.Param())
		}
		return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	case "max":
		if kind == reflect.Slice || kind == reflect.Array {
			return fmt.Sprintf("Array must contain at most %s element(s)", fe.Param())
		}
		return fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
	default:
		return fmt.Sprintf("Failed %s constraint", fe.Tag())
	}
}

// jsonTypeName 返回 JSON 值的类型名，用于类型不匹配时的提示
func jsonTypeName(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "undefined"
	}
	switch trimmed[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
