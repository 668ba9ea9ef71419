package dispatch

import (
	"Beacon/pkg/models"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"go.mau.fi/whatsmeow/types"
)

// NormalizeRecipient turns a stored phone into the id the sender expects,
// "<number>@c.us". An id that already carries the suffix is returned as is,
// and a full "@s.whatsapp.net" JID is rewritten. It reports false for a blank phone.
func NormalizeRecipient(phone string) (string, bool) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", false
	}
	if strings.HasSuffix(phone, "@"+types.LegacyUserServer) {
		return phone, true
	}
	if user, ok := strings.CutSuffix(phone, "@"+types.DefaultUserServer); ok {
		phone = user
	}
	return types.NewJID(phone, types.LegacyUserServer).String(), true
}

// Recipients normalizes the phones of members, in member order.
// Duplicates are kept and logged; blank phones are skipped and logged.
func Recipients(members []models.Contact, log zerolog.Logger) []string {
	recipients := lo.FilterMap(members, func(c models.Contact, _ int) (string, bool) {
		id, ok := NormalizeRecipient(c.Phone)
		if !ok {
			log.Warn().Uint("contact_id", c.ID).Str("name", c.Name).Msg("Skipping contact without phone")
			return "", false
		}
		if !looksLikePhone(c.Phone) {
			log.Warn().Uint("contact_id", c.ID).Str("phone", c.Phone).Msg("Recipient does not look like a phone number")
		}
		return id, true
	})
	if dups := lo.FindDuplicates(recipients); len(dups) > 0 {
		log.Warn().Strs("recipients", dups).Msg("Group contains duplicate recipients")
	}
	return recipients
}

// looksLikePhone accepts at least 8 digits making up most of the number
// once spaces, dashes, parentheses and the plus sign are removed.
func looksLikePhone(phone string) bool {
	user, _, _ := strings.Cut(strings.TrimSpace(phone), "@")
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "").Replace(user)
	if cleaned == "" {
		return false
	}
	digits := 0
	for _, r := range cleaned {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 8 && float64(digits)/float64(len(cleaned)) > 0.7
}
