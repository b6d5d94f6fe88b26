package validator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stemsi/gradebook/internal/model"
)

// ParseMark converts a typed mark into a percentage. Blank input means not
// yet graded. "a/b" is read as a fraction of b (b > 0). The result must lie
// in [0, 100].
func ParseMark(text string) (*float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var mark float64
	if num, denom, ok := strings.Cut(text, "/"); ok {
		n, err := parseFinite(num)
		if err != nil {
			return nil, invalidMark(text, "numerator is not a number")
		}
		d, err := parseFinite(denom)
		if err != nil {
			return nil, invalidMark(text, "denominator is not a number")
		}
		if d <= 0 {
			return nil, invalidMark(text, "denominator must be > 0")
		}
		mark = n / d * 100
	} else {
		m, err := parseFinite(text)
		if err != nil {
			return nil, invalidMark(text, "not a number or fraction")
		}
		mark = m
	}

	if mark < 0 || mark > 100 {
		return nil, invalidMark(text, "must be between 0 and 100 after conversion")
	}
	return &mark, nil
}

func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite")
	}
	return f, nil
}

func invalidMark(text, reason string) error {
	return fmt.Errorf("mark %q: %s: %w", text, reason, model.ErrValidation)
}

// Assessment validates an edit request and converts it to a model value.
// Name is trimmed and must be non-empty; a blank kind becomes
// model.DefaultKind; weight must lie in [0, 1000].
func Assessment(req model.AssessmentRequest) (model.Assessment, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Kind = strings.TrimSpace(req.Kind)
	if err := Struct(req); err != nil {
		return model.Assessment{}, err
	}
	if math.IsNaN(*req.Weight) {
		return model.Assessment{}, fmt.Errorf("weight is not a number: %w", model.ErrValidation)
	}

	mark, err := ParseMark(string(req.Mark))
	if err != nil {
		return model.Assessment{}, err
	}

	kind := req.Kind
	if kind == "" {
		kind = model.DefaultKind
	}
	return model.Assessment{Name: req.Name, Kind: kind, Weight: *req.Weight, Mark: mark}, nil
}
