// internal/expr/coercion.go
package expr

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/solatis/waypoint/internal/types"
)

/*
 * Result coercion for expression evaluation.
 *
 * JMESPath results arrive as JSON-shaped values (nil, bool, float64, string,
 * []any, map[string]any). Conditions need a boolean; targets and view
 * parameters need a string.
 *
 * Boolean mode (strict for non-strings):
 *   - nil: false (missing variable is not an error)
 *   - bool: as is
 *   - string: true iff "true" ignoring case and surrounding space
 *   - numbers, arrays, objects: ErrCoercionFailed
 *
 * Text mode (lenient): every type renders; nil renders empty, numbers use the
 * shortest representation, arrays and objects render as JSON.
 */

// toBoolean converts an expression result to a condition outcome.
func toBoolean(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true"), nil
	default:
		// no number-to-boolean coercion
		return false, types.ErrCoercionFailed
	}
}

// toText converts an expression result to its string form.
func toText(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", types.ErrCoercionFailed
		}
		return string(data), nil
	}
}
