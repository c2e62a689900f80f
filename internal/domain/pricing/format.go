package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

const (
	currencySuffixEN = "SAR"
	currencySuffixAR = "ر.س"
)

// FormatCurrency renders amount with the riyal suffix for locale: "ر.س" for
// Arabic locales, "SAR" for everything else. Digits are printed as stored,
// without rounding or digit-shape localisation.
func FormatCurrency(amount decimal.Decimal, locale string) string {
	suffix := currencySuffixEN
	if IsArabic(locale) {
		suffix = currencySuffixAR
	}
	return amount.String() + " " + suffix
}

// IsArabic reports whether locale is a BCP 47 tag (or its underscore variant)
// whose base language is Arabic.
func IsArabic(locale string) bool {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	if locale == "" {
		return false
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	arabic, _ := language.Arabic.Base()
	return base == arabic
}
