package audit

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EvidenceTag classifies an evidence image
type EvidenceTag string

const (
	// EvidenceIssue is the "before" picture of a problem
	EvidenceIssue EvidenceTag = "ISSUE"
	// EvidenceCorrective is the "after" picture of the remediation
	EvidenceCorrective EvidenceTag = "CORRECTIVE"
	// EvidenceGood shows a compliant state
	EvidenceGood EvidenceTag = "GOOD"
)

// IsValid checks if the tag is known
func (t EvidenceTag) IsValid() bool {
	switch t {
	case EvidenceIssue, EvidenceCorrective, EvidenceGood:
		return true
	default:
		return false
	}
}

// ParseEvidenceTag accepts the tag names plus "before"/"after"/"compliant"
func ParseEvidenceTag(raw string) (EvidenceTag, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ISSUE", "BEFORE":
		return EvidenceIssue, nil
	case "CORRECTIVE", "AFTER":
		return EvidenceCorrective, nil
	case "GOOD", "COMPLIANT":
		return EvidenceGood, nil
	default:
		return "", shared.NewValidationError("unrecognized evidence tag " + raw)
	}
}

// EvidenceRef points at one stored image belonging to a checklist item
type EvidenceRef struct {
	ID          uuid.UUID
	ItemID      uuid.UUID
	Tag         EvidenceTag
	ContentType string
	StorageKey  string
	FileName    string
	CreatedAt   time.Time
}

// EvidenceImage is an image with its content embedded
type EvidenceImage struct {
	ID          uuid.UUID   `json:"id"`
	ItemID      uuid.UUID   `json:"item_id"`
	Tag         EvidenceTag `json:"tag"`
	ContentType string      `json:"content_type"`
	FileName    string      `json:"file_name,omitempty"`
	Size        int         `json:"size"`
	DataURI     string      `json:"data_uri"`
}

const defaultContentType = "application/octet-stream"

// NewEvidenceImage embeds data as a base64 data URI so the image needs no
// further connectivity to display. contentType overrides the reference type when set.
func NewEvidenceImage(ref EvidenceRef, data []byte, contentType string) EvidenceImage {
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		ct = strings.TrimSpace(ref.ContentType)
	}
	if ct == "" {
		ct = defaultContentType
	}
	return EvidenceImage{
		ID:          ref.ID,
		ItemID:      ref.ItemID,
		Tag:         ref.Tag,
		ContentType: ct,
		FileName:    ref.FileName,
		Size:        len(data),
		DataURI:     "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data),
	}
}
