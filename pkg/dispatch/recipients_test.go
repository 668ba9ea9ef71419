package dispatch

import (
	"Beacon/pkg/models"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRecipient(t *testing.T) {
	cases := map[string]string{
		"15551234567":                "15551234567@c.us",
		" 15551234567 ":              "15551234567@c.us",
		"15551234567@c.us":           "15551234567@c.us",
		"15551234567@s.whatsapp.net": "15551234567@c.us",
	}
	for in, want := range cases {
		got, ok := NormalizeRecipient(in)
		require.True(t, ok, in)
		require.Equal(t, want, got, in)

		again, ok := NormalizeRecipient(got)
		require.True(t, ok)
		require.Equal(t, got, again, "normalizing twice changes %q", in)
	}

	_, ok := NormalizeRecipient("   ")
	require.False(t, ok)
}

func TestRecipients_KeepsOrderAndDuplicates(t *testing.T) {
	got := Recipients([]models.Contact{
		{ID: 1, Phone: "111"},
		{ID: 2, Phone: ""},
		{ID: 3, Phone: "333"},
		{ID: 4, Phone: "111"},
	}, zerolog.Nop())

	require.Equal(t, []string{"111@c.us", "333@c.us", "111@c.us"}, got)
}

func TestLooksLikePhone(t *testing.T) {
	require.True(t, looksLikePhone("+33 6 12 34 56 78"))
	require.True(t, looksLikePhone("15551234567@c.us"))
	require.False(t, looksLikePhone("Unknown"))
	require.False(t, looksLikePhone("1234"))
}
