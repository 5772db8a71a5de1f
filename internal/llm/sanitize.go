package llm

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"receiptscan/internal/common"
)

// The model is instructed to return bare JSON but in practice sometimes
// wraps it in markdown fences, prepends prose, or emits example code.
// Sanitize is the defense: for any input string it returns either a
// well-formed object or a MalformedExtractionError, nothing else.
var (
	reFence     = regexp.MustCompile("```(?:json)?\n?")
	reConstDecl = regexp.MustCompile(`(?s)\b(?:const|let|var)\s+[A-Za-z_$][\w$]*\s*=.*?;`)
	reFuncDecl  = regexp.MustCompile(`(?s)\bfunction\b[^{]*\{.*?\}`)
	reProse     = regexp.MustCompile(`(?s)(?:To extract|Example:|Steps:).*$`)

	// code-shaped string values in data fields
	reCallable = regexp.MustCompile(`^\s*(?:function\b|\([^)]*\)\s*=>|[A-Za-z_$][\w$]*\s*=>)`)
)

// guardedFields are the payload fields rejected outright when the model
// emitted code instead of data.
var guardedFields = []string{"merchantName", "totalAmount", "purchaseDate", "items"}

// Sanitize cleans one raw model completion into a parsed payload,
// repairing the shape deviations this model is known to produce:
// items emitted as a keyed object instead of a list, and a misspelled
// purchase-date key.
func Sanitize(raw string, logger *slog.Logger) (map[string]any, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cleaned := reFence.ReplaceAllString(raw, "")

	// isolate the outermost object span
	if i := strings.Index(cleaned, "{"); i > 0 {
		cleaned = cleaned[i:]
	}
	if i := strings.LastIndex(cleaned, "}"); i >= 0 && i < len(cleaned)-1 {
		cleaned = cleaned[:i+1]
	}

	// strip code and explanatory prose the model appended despite
	// instructions
	cleaned = reConstDecl.ReplaceAllString(cleaned, "")
	cleaned = reFuncDecl.ReplaceAllString(cleaned, "")
	cleaned = reProse.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	if !strings.HasPrefix(cleaned, "{") || !strings.HasSuffix(cleaned, "}") {
		logger.Warn("llm.sanitize.not_an_object", "cleaned_len", len(cleaned))
		return nil, common.NewMalformedExtractionError("model response is not a JSON object", nil)
	}

	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		logger.Warn("llm.sanitize.parse_failed", "error", err)
		return nil, common.NewMalformedExtractionError("model response is not valid JSON", err)
	}
	m, ok := parsed.(map[string]any)
	if !ok {
		return nil, common.NewMalformedExtractionError("model response is not a JSON object", nil)
	}

	repairItems(m, logger)
	repairDateKey(m, logger)

	for _, k := range guardedFields {
		if s, ok := m[k].(string); ok && reCallable.MatchString(s) {
			logger.Warn("llm.sanitize.code_in_data", "field", k)
			return nil, common.NewMalformedExtractionError("model emitted code instead of data", nil)
		}
	}

	if err := receiptPayloadSchema.Validate(m); err != nil {
		logger.Warn("llm.sanitize.schema_rejected", "error", err)
		return nil, common.NewMalformedExtractionError("model response does not match the expected shape", err)
	}

	return m, nil
}

// repairItems rewrites items the model keyed by name
// ({"Coffee": {"quantity":1,"price":3.5}}) into the expected list form.
// Keys are visited in sorted order so the result is deterministic.
func repairItems(m map[string]any, logger *slog.Logger) {
	obj, ok := m["items"].(map[string]any)
	if !ok {
		return
	}
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]any, 0, len(names))
	for _, name := range names {
		entry := map[string]any{"name": name}
		if details, ok := obj[name].(map[string]any); ok {
			entry["quantity"] = details["quantity"]
			entry["price"] = details["price"]
		}
		list = append(list, entry)
	}
	m["items"] = list
	logger.Warn("llm.sanitize.items_repaired", "count", len(list))
}

// repairDateKey renames the misspelled purchase-date key this model is
// known to emit.
func repairDateKey(m map[string]any, logger *slog.Logger) {
	v, ok := m["purchasseeDate"]
	if !ok {
		return
	}
	m["purchaseDate"] = v
	delete(m, "purchasseeDate")
	logger.Warn("llm.sanitize.date_key_repaired")
}
