package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LevenshteinDistance is the edit distance between two strings
func LevenshteinDistance(s1, s2 string) int {
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// ClosestMatch returns the candidate nearest to s (case insensitive) if it is
// within maxDistance edits
func ClosestMatch(s string, candidates []string, maxDistance int) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	best, bestDist := "", math.MaxInt32
	for _, c := range candidates {
		if d := LevenshteinDistance(s, strings.ToLower(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist <= maxDistance
}

// GetAsString converts various types to string
func GetAsString(s any) (string, error) {
	if s == nil {
		return "", fmt.Errorf("cannot convert nil to string")
	}
	switch v := s.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// GetAsInteger converts JSON numbers and numeric strings to int. Floats must
// be whole numbers.
func GetAsInteger(s any) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("cannot convert nil to integer")
	}
	switch v := s.(type) {
	case int:
		return v, nil
	case int64:
		if v > math.MaxInt32 || v < math.MinInt32 {
			return 0, fmt.Errorf("int64 value %d is out of int range", v)
		}
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("float64 value %f is not a whole number", v)
		}
		return int(v), nil
	case string:
		result, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("cannot convert string '%s' to integer: %w", v, err)
		}
		return result, nil
	default:
		return 0, fmt.Errorf("cannot convert type %T to integer", s)
	}
}

// GetAsFloat converts JSON numbers and numeric strings to float64
func GetAsFloat(s any) (float64, error) {
	if s == nil {
		return 0, fmt.Errorf("cannot convert nil to float")
	}
	switch v := s.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		result, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string '%s' to float: %w", v, err)
		}
		return result, nil
	default:
		return 0, fmt.Errorf("cannot convert type %T to float", s)
	}
}

// GetAsBool converts booleans and "true"/"false" style strings
func GetAsBool(s any) (bool, error) {
	switch v := s.(type) {
	case bool:
		return v, nil
	case string:
		result, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("cannot convert string '%s' to bool: %w", v, err)
		}
		return result, nil
	default:
		return false, fmt.Errorf("cannot convert type %T to bool", s)
	}
}

// Params wraps tool call arguments
type Params map[string]any

// AsParams accepts the shapes tool arguments arrive in
func AsParams(params any) (Params, error) {
	switch p := params.(type) {
	case nil:
		return Params{}, nil
	case Params:
		return p, nil
	case map[string]any:
		return Params(p), nil
	default:
		return nil, fmt.Errorf("couldn't format the parameters as a map of strings, got %T", params)
	}
}

// Has reports whether key is present and not null
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns the named string argument or def when absent
func (p Params) String(key, def string) (string, error) {
	if !p.Has(key) {
		return def, nil
	}
	v, err := GetAsString(p[key])
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// Float returns the named numeric argument or def when absent
func (p Params) Float(key string, def float64) (float64, error) {
	if !p.Has(key) {
		return def, nil
	}
	v, err := GetAsFloat(p[key])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// Int returns the named integer argument or def when absent
func (p Params) Int(key string, def int) (int, error) {
	if !p.Has(key) {
		return def, nil
	}
	v, err := GetAsInteger(p[key])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// Bool returns the named boolean argument or def when absent
func (p Params) Bool(key string, def bool) (bool, error) {
	if !p.Has(key) {
		return def, nil
	}
	v, err := GetAsBool(p[key])
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
