package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "plain integer", input: "1000", want: "1000"},
		{name: "zero", input: "0", want: "0"},
		{name: "whitespace trimmed", input: "  42 ", want: "42"},
		{name: "larger than uint64", input: "340282366920938463463374607431768211456", want: "340282366920938463463374607431768211456"},
		{name: "empty", input: "", wantErr: ErrAmountEmpty},
		{name: "blank", input: "   ", wantErr: ErrAmountEmpty},
		{name: "negative", input: "-5", wantErr: ErrAmountNegative},
		{name: "decimal point", input: "1.5", wantErr: ErrAmountInvalid},
		{name: "garbage", input: "abc", wantErr: ErrAmountInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.input)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got.String())
		})
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "integer rate", input: "2", want: "2.000000000000000000"},
		{name: "fractional rate", input: "0.7", want: "0.700000000000000000"},
		{name: "zero", input: "0", want: "0.000000000000000000"},
		{name: "empty", input: "", wantErr: ErrRateEmpty},
		{name: "negative", input: "-0.5", wantErr: ErrRateNegative},
		{name: "garbage", input: "fast", wantErr: ErrRateInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRate(tc.input)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got.String())
		})
	}
}
