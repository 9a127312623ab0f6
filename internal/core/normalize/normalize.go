// Package normalize turns loosely-structured upload rows into typed values.
// It is pure: no storage, no clock, and malformed optional fields degrade to
// defaults instead of failing the row. The only hard failure is a missing
// CPF.
package normalize

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vmoraes/debtflow/internal/core/domain"
)

var ErrCPFRequired = errors.New("cpf is required")

// Row is the normalized view of one staged contact row.
type Row struct {
	CPF            string
	Name           string
	Email          string
	BirthDate      *time.Time
	PhoneNumber    string // digits only; empty means no phone
	IsPrimaryPhone bool

	// HasFinancials reports whether the raw row carried an amount column at
	// all, even one that normalizes to zero. Absence and zero are different
	// things upstream of the debt recorder.
	HasFinancials  bool
	OriginalAmount float64
	CurrentAmount  float64
	DueDate        *time.Time
	ContractNumber string
	DebtStatus     string
	Metadata       domain.DebtMetadata
}

// Normalize folds the raw row's keys, resolves column aliases and coerces
// every field. It returns ErrCPFRequired when no CPF alias carries a value.
func Normalize(raw map[string]any, aliases AliasTable) (Row, error) {
	folded := foldKeys(raw)

	cpf, ok := firstPresent(folded, aliases.CPF)
	if !ok {
		return Row{}, ErrCPFRequired
	}

	row := Row{CPF: cpf}

	if name, ok := firstPresent(folded, aliases.Name); ok {
		row.Name = name
	}
	if email, ok := firstPresent(folded, aliases.Email); ok {
		row.Email = email
	}
	for _, key := range aliases.BirthDate {
		if v, ok := folded[key]; ok {
			row.BirthDate = ParseDate(v)
			break
		}
	}
	for _, key := range aliases.Phone {
		if digits := CleanPhone(folded[key]); digits != "" {
			row.PhoneNumber = digits
			break
		}
	}
	row.IsPrimaryPhone = strings.EqualFold(Stringify(folded["is_primary"]), "true")

	_, hasOriginal := folded["original_amount"]
	_, hasCurrent := folded["current_amount"]
	row.HasFinancials = hasOriginal || hasCurrent
	row.OriginalAmount = ParseCurrency(folded["original_amount"])
	row.CurrentAmount = ParseCurrency(folded["current_amount"])
	row.DueDate = ParseDate(folded["due_date"])
	row.ContractNumber = Stringify(folded["contract_number"])

	row.DebtStatus = Stringify(folded["status"])
	if row.DebtStatus == "" {
		row.DebtStatus = domain.DebtStatusOpen
	}

	row.Metadata = domain.DebtMetadata{
		Portfolio:        folded["portfolio"],
		ProductType:      folded["product_type"],
		Segment:          folded["segment"],
		NegotiationLimit: folded["negotiation_limit"],
		DiscountLimit:    folded["discount_limit"],
	}

	return row, nil
}

// foldKeys lowercases and trims every key. When two raw keys collapse to the
// same folded key the lexically later raw key wins, keeping the result
// deterministic regardless of map iteration order.
func foldKeys(raw map[string]any) map[string]any {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	folded := make(map[string]any, len(raw))
	for _, k := range keys {
		folded[strings.TrimSpace(strings.ToLower(k))] = raw[k]
	}
	return folded
}

// firstPresent returns the stringified value of the first alias whose value
// is non-empty.
func firstPresent(row map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		if s := Stringify(row[key]); s != "" {
			return s, true
		}
	}
	return "", false
}

// Stringify renders a scalar the way it appeared in the upload. json.Number
// and integral floats keep their digits, so CPFs and phone numbers never
// pick up an exponent.
func Stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}

// ParseCurrency coerces heterogeneous money representations to a float.
// Native numbers pass through. Strings are stripped to [0-9.,-], the first
// comma becomes a decimal period, and any remaining periods except the last
// are treated as thousands separators. Anything unparseable yields 0; this
// is a deliberate lossy-but-non-blocking policy, so a row never fails on a
// bad amount. Inputs with more than one comma stay ambiguous and degrade
// to 0.
func ParseCurrency(v any) float64 {
	switch value := v.(type) {
	case nil:
		return 0
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case json.Number:
		if f, err := value.Float64(); err == nil {
			return f
		}
		return 0
	case string:
		return parseCurrencyString(value)
	default:
		return 0
	}
}

func parseCurrencyString(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, s)
	if s == "" {
		return 0
	}

	s = strings.Replace(s, ",", ".", 1)

	// "1.234.56" carries thousands separators; only the last period is the
	// decimal point.
	if strings.Count(s, ".") > 1 {
		last := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:last], ".", "") + s[last:]
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
}

// ParseDate attempts a generic date parse. Numeric values are epoch
// milliseconds. An unparseable or absent value yields nil, never an error;
// due dates and birth dates are always optional.
func ParseDate(v any) *time.Time {
	switch value := v.(type) {
	case nil:
		return nil
	case time.Time:
		t := value.UTC()
		return &t
	case json.Number:
		if ms, err := value.Int64(); err == nil {
			t := time.UnixMilli(ms).UTC()
			return &t
		}
		return nil
	case float64:
		t := time.UnixMilli(int64(value)).UTC()
		return &t
	case string:
		s := strings.TrimSpace(value)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
		return nil
	default:
		return nil
	}
}

// CleanPhone strips every non-digit character. An empty result means the
// row has no phone.
func CleanPhone(v any) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, Stringify(v))
}
