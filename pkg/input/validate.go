package input

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
	translator   ut.Translator
)

// Validator 返回共享的校验器，注册了 weekday 和 timerange 规则及中文翻译
func Validator() (*validator.Validate, ut.Translator) {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		_ = validate.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
			return model.Day(fl.Field().String()).IsValid()
		})
		_ = validate.RegisterValidation("timerange", func(fl validator.FieldLevel) bool {
			_, err := model.ParseTimeRange(fl.Field().String())
			return err == nil
		})

		locale := zh.New()
		translator, _ = ut.New(locale, locale).GetTranslator("zh")
		_ = zh_translations.RegisterDefaultTranslations(validate, translator)
		registerTranslation("weekday", "{0}必须是星期代码 (mo/tu/we/th/fr/sa/su)")
		registerTranslation("timerange", "{0}必须是 HH:MM-HH:MM 格式")
	})
	return validate, translator
}

func registerTranslation(tag, text string) {
	_ = validate.RegisterTranslation(tag, translator,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field())
			return msg
		},
	)
}

// Validate 校验结构和引用关系，错误统一为 VALIDATION_FAILED
func Validate(doc *Document) error {
	// 结构错误时不再检查引用，避免空指针
	if err := ValidateStruct(doc); err != nil {
		return err
	}

	errs := &apperrors.ValidationErrors{}
	checkReferences(doc, errs)
	if errs.HasErrors() {
		return errs.ToAppError()
	}
	return nil
}

// ValidateStruct 按 validate 标签校验任意结构，字段错误翻译为中文
func ValidateStruct(v interface{}) error {
	validate, trans := Validator()

	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "校验失败")
	}
	errs := &apperrors.ValidationErrors{}
	for _, fe := range fieldErrs {
		errs.Add(fe.Namespace(), fe.Translate(trans))
	}
	return errs.ToAppError()
}

// checkReferences 员工 id 唯一，岗位引用存在，客流只出现在营业日
func checkReferences(doc *Document, errs *apperrors.ValidationErrors) {
	seen := make(map[int]bool, len(doc.Empl))
	for i, e := range doc.Empl {
		field := fmt.Sprintf("Document.Empl[%d]", i)
		if seen[e.ID] {
			errs.Add(field+".ID", fmt.Sprintf("员工 id %d 重复", e.ID))
		}
		seen[e.ID] = true

		for _, role := range e.roleList() {
			if _, ok := doc.Positions[role]; !ok {
				errs.Add(field+".Pos", fmt.Sprintf("岗位 %q 未定义", role))
			}
		}
	}

	days := make([]string, 0, len(doc.DailyTraffic))
	for day := range doc.DailyTraffic {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		if _, ok := doc.Hours[day]; !ok {
			errs.Add(fmt.Sprintf("Document.DailyTraffic[%s]", day), "该天没有营业时间")
		}
	}
}
