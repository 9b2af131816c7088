package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/01moynul/tg-storefront/internal/models"
)

// SubmissionType is the only web app payload type accepted.
const SubmissionType = "checkout"

var validate = validator.New()

// Submission errors. Both wrap ErrValidation.
var (
	ErrUnreadableSubmission = fmt.Errorf("%w: unreadable submission", models.ErrValidation)
	ErrUnknownSubmission    = fmt.Errorf("%w: unknown submission type", models.ErrValidation)
)

// Submission is the one-shot checkout payload posted by the web app
// storefront:
//
//	{"type":"checkout","items":[{"sku":"MUG","qty":2}],"city":"...","branch":"...","receiver":"...","phone":"..."}
type Submission struct {
	Type     string           `json:"type" validate:"eq=checkout"`
	Items    []SubmissionItem `json:"items"`
	City     string           `json:"city"`
	Branch   string           `json:"branch"`
	Receiver string           `json:"receiver"`
	Phone    string           `json:"phone"`
}

// Delivery returns the trimmed delivery fields.
func (s *Submission) Delivery() models.Delivery {
	return models.Delivery{City: s.City, Branch: s.Branch, Receiver: s.Receiver, Phone: s.Phone}.Trimmed()
}

// SubmissionItem is one requested line. Qty defaults to 1 when omitted.
type SubmissionItem struct {
	SKU string
	Qty int
}

// UnmarshalJSON accepts the sku and the qty as a string or a number.
// A fractional qty is truncated toward zero.
func (i *SubmissionItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		SKU json.RawMessage `json:"sku"`
		Qty json.RawMessage `json:"qty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	qty, err := parseQty(raw.Qty)
	if err != nil {
		return err
	}
	i.Qty = qty

	sku := bytes.TrimSpace(raw.SKU)
	switch {
	case len(sku) == 0 || bytes.Equal(sku, []byte("null")):
		i.SKU = ""
	case sku[0] == '"':
		if err := json.Unmarshal(sku, &i.SKU); err != nil {
			return err
		}
	default:
		var n json.Number
		if err := json.Unmarshal(sku, &n); err != nil {
			return fmt.Errorf("sku must be a string or number: %w", err)
		}
		i.SKU = n.String()
	}
	i.SKU = strings.TrimSpace(i.SKU)
	return nil
}

func parseQty(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 1, nil
	}

	// 1. --- Quoted Integer ---
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		qty, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return 0, fmt.Errorf("qty must be an integer: %w", err)
		}
		return qty, nil
	}

	// 2. --- JSON Number ---
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("qty must be a string or number: %w", err)
	}
	if v, err := n.Int64(); err == nil {
		return clampQty(float64(v), v), nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("qty must be a number: %w", err)
	}
	return clampQty(f, int64(math.Trunc(f))), nil
}

// clampQty keeps out-of-range quantities out of range after conversion to
// int, so they are dropped later instead of wrapping around.
func clampQty(f float64, v int64) int {
	switch {
	case f > models.MaxLineQty:
		return models.MaxLineQty + 1
	case f < 0:
		return -1
	default:
		return int(v)
	}
}

// ParseSubmission decodes and validates a web app payload. Malformed JSON
// and unknown payload types are validation errors.
func ParseSubmission(data string) (*Submission, error) {
	var s Submission
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSubmission, err)
	}
	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubmission, s.Type)
	}
	return &s, nil
}
