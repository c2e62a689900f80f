package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		amount string
		locale string
		want   string
	}{
		{amount: "152.5", locale: "en", want: "152.5 SAR"},
		{amount: "152.5", locale: "ar", want: "152.5 ر.س"},
		{amount: "0", locale: "ar-SA", want: "0 ر.س"},
		{amount: "99.999", locale: "ar_SA", want: "99.999 ر.س"},
		{amount: "10", locale: "en-US", want: "10 SAR"},
		{amount: "10", locale: "", want: "10 SAR"},
		{amount: "10", locale: "not a locale!", want: "10 SAR"},
		{amount: "-7.5", locale: "fr", want: "-7.5 SAR"},
	}

	for _, tt := range tests {
		t.Run(tt.locale+"/"+tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(d(tt.amount), tt.locale))
		})
	}
}

func TestIsArabic(t *testing.T) {
	assert.True(t, IsArabic("ar"))
	assert.True(t, IsArabic(" AR-sa "))
	assert.True(t, IsArabic("ar-EG"))
	assert.False(t, IsArabic("en"))
	assert.False(t, IsArabic(""))
}
