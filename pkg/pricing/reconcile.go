package pricing

// Reconciled is the outcome of applying a guarantee floor.
type Reconciled struct {
	FinalPrice       int  `json:"final_price"`
	GuaranteeApplied bool `json:"guarantee_applied"`
}

// Reconcile applies the minimum guaranteed price to a computed price.
// A guarantee of 0 means no floor.
func Reconcile(rawPrice, guaranteePrice int) Reconciled {
	return Reconciled{
		FinalPrice:       max(rawPrice, guaranteePrice),
		GuaranteeApplied: guaranteePrice > 0 && rawPrice < guaranteePrice,
	}
}
