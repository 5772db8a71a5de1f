package receipt

import "time"

// IsDuplicate reports whether a freshly extracted receipt matches the most
// recent prior receipt stored for the same file identity. The match is
// exact on merchant name and amount, and on the UTC calendar day of the
// purchase. No fuzzy matching and no tolerance band on the amount.
func IsDuplicate(candidate ExtractedReceipt, prior *ExtractedReceipt) bool {
	if prior == nil {
		return false
	}
	return candidate.MerchantName == prior.MerchantName &&
		candidate.TotalAmount == prior.TotalAmount &&
		sameUTCDay(candidate.PurchaseDate, prior.PurchaseDate)
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
