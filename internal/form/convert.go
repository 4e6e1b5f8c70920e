package form

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/c-robinson/iplib"
	"github.com/spf13/cast"
)

const bytesPerGB = int64(1) << 30

// displayValue converts a server-encoded value into its display form.
func displayValue(f *Field, v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	switch f.Kind {
	case KindBytesGB:
		b, err := cast.ToInt64E(v)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", f.Name, err)
		}
		gb := float64(b) / float64(bytesPerGB)
		return strconv.FormatFloat(gb, 'f', -1, 64), nil
	case KindClock12h:
		s := cast.ToString(v)
		if s == "" {
			return "", nil
		}
		t, err := time.Parse("15:04", s)
		if err != nil {
			return "", fmt.Errorf("field %s: parse clock %q: %w", f.Name, s, err)
		}
		return t.Format("03:04 PM"), nil
	case KindTimestamp:
		s := cast.ToString(v)
		if s == "" {
			return "", nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return "", fmt.Errorf("field %s: parse timestamp %q: %w", f.Name, s, err)
		}
		return t.Format("2006-01-02 15:04"), nil
	case KindBool:
		return strconv.FormatBool(cast.ToBool(v)), nil
	case KindInt, KindID:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", f.Name, err)
		}
		return strconv.FormatInt(n, 10), nil
	default:
		return cast.ToString(v), nil
	}
}

// parseValue converts a display value back into its server encoding. This
// is the inverse of displayValue and is only applied to fields the
// operator actually edited.
func parseValue(f *Field, display string) (interface{}, error) {
	display = strings.TrimSpace(display)
	switch f.Kind {
	case KindBytesGB:
		if display == "" {
			return int64(0), nil
		}
		gb, err := cast.ToFloat64E(display)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid size %q", f.Name, display)
		}
		return int64(gb * float64(bytesPerGB)), nil
	case KindClock12h:
		if display == "" {
			return "", nil
		}
		t, err := time.Parse("03:04 PM", display)
		if err != nil {
			// Accept raw 24h input too; operators paste both forms.
			t, err = time.Parse("15:04", display)
			if err != nil {
				return nil, fmt.Errorf("field %s: invalid time %q", f.Name, display)
			}
		}
		return t.Format("15:04"), nil
	case KindTimestamp:
		if display == "" {
			return "", nil
		}
		t, err := dateparse.ParseAny(display)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid timestamp %q", f.Name, display)
		}
		return t.UTC().Format(time.RFC3339), nil
	case KindBool:
		if display == "" {
			return false, nil
		}
		b, err := cast.ToBoolE(display)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid boolean %q", f.Name, display)
		}
		return b, nil
	case KindInt:
		if display == "" {
			return int64(0), nil
		}
		n, err := cast.ToInt64E(display)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid number %q", f.Name, display)
		}
		return n, nil
	case KindID:
		// An empty reference stays out of the payload entirely; an empty
		// string would break the decimal-string decode server-side.
		if display == "" {
			return nil, nil
		}
		if _, err := strconv.ParseInt(display, 10, 64); err != nil {
			return nil, fmt.Errorf("field %s: invalid id %q", f.Name, display)
		}
		return display, nil
	case KindEnum:
		for _, allowed := range f.Enum {
			if display == allowed {
				return display, nil
			}
		}
		return nil, fmt.Errorf("field %s: %q is not one of %s", f.Name, display, strings.Join(f.Enum, ", "))
	case KindIP:
		if display == "" {
			return "", nil
		}
		ip := net.ParseIP(display)
		if ip == nil || iplib.EffectiveVersion(ip) == 0 {
			return nil, fmt.Errorf("field %s: invalid IP address %q", f.Name, display)
		}
		return display, nil
	default:
		return display, nil
	}
}

// zeroValue returns the server-encoded zero for a field, used for
// disabled dependent fields declared ZeroWhenDisabled.
func zeroValue(f *Field) interface{} {
	switch f.Kind {
	case KindInt, KindBytesGB:
		return int64(0)
	case KindBool:
		return false
	default:
		return ""
	}
}
