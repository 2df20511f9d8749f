package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/foodaudit/backend/internal/domain/shared"
)

// FormatDocumentNumber builds "<PREFIX>-<YYYYMM>-<seq>" with a zero-padded
// four digit sequence, e.g. "FSA-202403-0007".
func FormatDocumentNumber(prefix string, date time.Time, seq int) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", shared.NewValidationError("document prefix cannot be empty")
	}
	if seq <= 0 {
		return "", shared.NewValidationError("document sequence must be positive")
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, date.Format("200601"), seq), nil
}

// DocumentPeriod returns the "<PREFIX>-<YYYYMM>" key sequences are counted under
func DocumentPeriod(prefix string, date time.Time) string {
	return strings.ToUpper(strings.TrimSpace(prefix)) + "-" + date.Format("200601")
}
