package types

// CardMetadata carries the card breakdown a gateway callback reports for a
// completed payment. Recorded verbatim; never interpreted by the ledger.
type CardMetadata struct {
	Issuer          *string `json:"issuer,omitempty"`
	Acquirer        *string `json:"acquirer,omitempty"`
	Number          *string `json:"number,omitempty"`
	InstallmentPlan *int    `json:"installment_plan,omitempty"`
	ApproveNo       *string `json:"approve_no,omitempty"`
	CardType        *string `json:"card_type,omitempty"`
}
