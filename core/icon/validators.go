package icon

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schooladmin/core"
)

var (
	iconSeqTag  = "iconseq"
	iconSeqText = "{0} must be 4 different icons between 1 and 24"
)

func init() {
	_ = core.Validate.RegisterValidation(iconSeqTag, iconSeqValidation)
	core.RegisterCustomTranslation(iconSeqTag, iconSeqText)
}

// iconSeqValidation checks a Sequence field. Use with omitempty for optional codes.
func iconSeqValidation(fl validator.FieldLevel) bool {
	if seq, ok := fl.Field().Interface().(Sequence); ok {
		return seq.Validate() == nil
	}
	return false
}
