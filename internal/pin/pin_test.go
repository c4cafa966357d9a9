package pin

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	Cost = bcrypt.MinCost
	m.Run()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		pin     string
		wantErr string
	}{
		{pin: "1234"},
		{pin: "12345678"},
		{pin: "123", wantErr: "4-8 digits"},
		{pin: "123456789", wantErr: "4-8 digits"},
		{pin: "12a4", wantErr: "digits only"},
		{pin: "١٢٣٤", wantErr: "digits only"},
	}
	for _, tc := range tests {
		t.Run(tc.pin, func(t *testing.T) {
			err := Validate(tc.pin)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("2468")
	require.NoError(t, err)
	require.NotEqual(t, "2468", hash)

	require.NoError(t, Verify(hash, "2468"))
	require.ErrorIs(t, Verify(hash, "1357"), ErrMismatch)
	require.ErrorIs(t, Verify(hash, ""), ErrRequired)
	require.NoError(t, Verify("", ""))

	_, err = Hash("12")
	require.Error(t, err)
}
