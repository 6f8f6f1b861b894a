package push

import (
	"fmt"
	"strconv"
)

// Notification is one logical notification to deliver. Data carries
// client-side routing hints (event type, related entity ids) and must
// flatten to string keys and scalar values; the gateway accepts only
// string-to-string maps.
type Notification struct {
	Title string
	Body  string
	Data  map[string]any
}

// FlattenData converts a notification data map to the string-to-string
// form the gateway requires. Nested maps, slices and other non-scalar
// values are rejected.
func FlattenData(data map[string]any) (map[string]string, error) {
	if len(data) == 0 {
		return nil, nil
	}

	flat := make(map[string]string, len(data))
	for key, value := range data {
		s, err := flattenValue(value)
		if err != nil {
			return nil, fmt.Errorf("data key %q: %w", key, err)
		}
		flat[key] = s
	}
	return flat, nil
}

func flattenValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}
