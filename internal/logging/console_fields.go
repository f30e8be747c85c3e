package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	logTimestampLayout = "2006-01-02 15:04:05"
	infoAttrLimit      = 6
)

// infoHighlightKeys are shown as bullets under INFO and above, in this order.
// Everything else is counted as hidden unless the logger runs at debug level.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldOutcome,
	FieldDecisionType,
	"decision_result",
	"ion_types",
	"ion_mass",
	"candidates",
	"formula",
	"score",
	"reason",
	"count",
	"path",
	"error",
	FieldErrorHint,
	FieldImpact,
}

// headerKeys are folded into the log header and never listed as fields.
var headerKeys = map[string]struct{}{
	FieldComponent:     {},
	FieldInstanceIndex: {},
	FieldStage:         {},
}

var displayLabels = map[string]string{
	FieldOutcome:      "Outcome",
	FieldDecisionType: "Decision",
	"decision_result": "Result",
	"ion_types":       "Ion types",
	"ion_mass":        "Ion mass",
	FieldErrorHint:    "Hint",
	FieldImpact:       "Impact",
}

type infoField struct {
	label string
	value string
}

func selectInfoFields(attrs []kv) ([]infoField, int) {
	byKey := make(map[string]kv, len(attrs))
	countable := 0
	for _, attr := range attrs {
		if _, header := headerKeys[attr.key]; header {
			continue
		}
		byKey[attr.key] = attr
		countable++
	}
	fields := make([]infoField, 0, infoAttrLimit)
	for _, key := range infoHighlightKeys {
		attr, ok := byKey[key]
		if !ok {
			continue
		}
		if len(fields) >= infoAttrLimit {
			break
		}
		fields = append(fields, infoField{label: displayLabel(key), value: formatValueForKey(key, attr.value)})
	}
	return fields, countable - len(fields)
}

func displayLabel(key string) string {
	if label, ok := displayLabels[key]; ok {
		return label
	}
	label := strings.ReplaceAll(key, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindFloat64 && (strings.HasSuffix(key, "_mass") || strings.HasSuffix(key, "_mz")) {
		return strconv.FormatFloat(v.Float64(), 'f', 4, 64)
	}
	return formatValue(v)
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(logTimestampLayout)
}

func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return formatValue(v)
	}
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else if list, ok := v.Any().([]string); ok {
			s = strings.Join(list, ",")
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r < ' ' || r == '"' {
			return true
		}
	}
	return false
}
