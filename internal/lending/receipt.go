package lending

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewReceiptNumber returns RCPT-<unix millis>-<8 hex chars>. The random
// suffix keeps receipts unique when two payments land in the same
// millisecond.
func NewReceiptNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("RCPT-%d-%s", now.UnixMilli(), suffix)
}
