package handler

import (
	"fmt"
	"reflect"
	"strings"

	"dine_chat/pkg/constants"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Trans 全局翻译器，InitTrans 之后可用
var Trans ut.Translator

// tagParticipant 校验参与者 id：非空白且不是后端的 guest 占位 id
const tagParticipant = "participant"

// InitTrans 初始化 validator 翻译器并注册聊天相关的自定义校验
// locale 为 "zh" 或 "en"，其他值按英文处理
func InitTrans(locale string) (err error) {
	// Gin v1.9+ 中 binding.Validator 可能为 nil
	if binding.Validator == nil {
		binding.Validator = &defaultValidator{validator: validator.New()}
	}

	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	// 报错里使用 json tag（counterpart_id）而不是结构体字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err = v.RegisterValidation(tagParticipant, validateParticipant); err != nil {
		return err
	}

	enT := en.New()
	uni := ut.New(enT, zh.New(), enT)
	if Trans, ok = uni.GetTranslator(locale); !ok {
		return fmt.Errorf("uni.GetTranslator(%s) failed", locale)
	}

	participantMsg := "{0} must be a participant id"
	switch locale {
	case "zh":
		err = zh_translations.RegisterDefaultTranslations(v, Trans)
		participantMsg = "{0}必须是有效的参与者id"
	default:
		err = en_translations.RegisterDefaultTranslations(v, Trans)
	}
	if err != nil {
		return err
	}

	return v.RegisterTranslation(tagParticipant, Trans,
		func(t ut.Translator) error {
			return t.Add(tagParticipant, participantMsg, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tagParticipant, fe.Field())
			return msg
		})
}

func validateParticipant(fl validator.FieldLevel) bool {
	id := strings.TrimSpace(fl.Field().String())
	return id != "" && id != constants.GUEST_USER_ID
}

// RemoveTopStruct 去掉错误字段里的结构体名前缀（"SendChatRequest.message" -> "message"）
func RemoveTopStruct(fields map[string]string) map[string]string {
	res := make(map[string]string, len(fields))
	for field, err := range fields {
		res[field[strings.Index(field, ".")+1:]] = err
	}
	return res
}

// defaultValidator 在 binding.Validator 为空时补上的实现
type defaultValidator struct {
	validator *validator.Validate
}

// ValidateStruct 实现 binding.StructValidator
func (v *defaultValidator) ValidateStruct(obj interface{}) error {
	return v.validator.Struct(obj)
}

// Engine 实现 binding.StructValidator
func (v *defaultValidator) Engine() interface{} {
	return v.validator
}
