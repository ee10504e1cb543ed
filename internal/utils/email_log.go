package utils

import (
	"context"

	"go.uber.org/zap"

	"library-lending/internal/models"
)

// ReceiptMailer returns a payment hook that logs the receipt email a member
// would receive.
func ReceiptMailer(log *zap.Logger) func(ctx context.Context, b models.Borrowal) {
	return func(_ context.Context, b models.Borrowal) {
		AppendToEmailLog(log, b)
	}
}

func AppendToEmailLog(log *zap.Logger, b models.Borrowal) {
	receipt := ""
	if b.ReceiptNumber != nil {
		receipt = *b.ReceiptNumber
	}
	email := ""
	if b.Member != nil {
		email = b.Member.Email
	}
	log.Info("[EMAIL LOG] fine receipt sent",
		zap.String("member_id", b.MemberID),
		zap.String("email", email),
		zap.String("borrowal_id", b.ID),
		zap.String("receipt", receipt),
		zap.Float64("amount", b.AmountPaid),
	)
}
