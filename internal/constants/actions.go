package constants

// Audit log actions.
const (
	Create   = "CREATE"
	Update   = "UPDATE"
	Delete   = "DELETE"
	CheckOut = "CHECK_OUT"
	CheckIn  = "CHECK_IN"
	PayFine  = "PAY_FINE"
	Login    = "LOGIN"
)
