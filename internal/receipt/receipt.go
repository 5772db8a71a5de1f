package receipt

import "time"

// Item is one line item on a receipt.
type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// ExtractedReceipt is the pipeline's output contract. Every field is
// populated: normalization fills defaults for anything the model could not
// recover, so there is no partially-populated public result.
type ExtractedReceipt struct {
	MerchantName string    `json:"merchantName"`
	TotalAmount  float64   `json:"totalAmount"`
	PurchaseDate time.Time `json:"purchaseDate"`
	Items        []Item    `json:"items"`
	Confidence   float32   `json:"confidence"`
	IsScanned    bool      `json:"isScanned"`
}
