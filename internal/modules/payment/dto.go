package payment

type InitiatePaymentRequest struct {
	PendingBookingID int64  `json:"pending_booking_id" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
}

type InitiatePaymentResponse struct {
	TxRef       string  `json:"tx_ref"`
	CheckoutURL string  `json:"checkout_url"`
	Amount      float64 `json:"amount"`
}

// webhookPayload is what the processor posts back after the patient finishes
// (or abandons) checkout.
type webhookPayload struct {
	TxRef  string  `json:"tx_ref"`
	Status string  `json:"status"` // success | failed | cancelled
	Amount float64 `json:"amount"`
}

type WebhookResult struct {
	TxRef         string `json:"tx_ref"`
	Outcome       string `json:"outcome"` // converted | released | ignored
	AppointmentID *int64 `json:"appointment_id,omitempty"`
}
