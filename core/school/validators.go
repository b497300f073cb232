package school

import "github.com/trezcool/schooladmin/core"

var (
	// custom validation texts
	passwordsMatchText = "passwords do not match"
	currencyText       = "{0} must be an ISO 4217 currency code like USD"
)

func init() {
	// eqfield is only used to confirm passwords
	core.RegisterCustomTranslation("eqfield", passwordsMatchText, true)
	core.RegisterCustomTranslation("iso4217", currencyText, true)
}
