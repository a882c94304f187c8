package triggercard

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/edgehunter/kernel/internal/snapshot"
)

// ValidationResult is the outcome of validating one TriggerCards JSONL file.
type ValidationResult struct {
	ValidCount            int
	HasTruncatedLine       bool
	TruncatedLineContent   string
	Errors                 []string
	Success                bool
}

var requiredFields = []string{"run_id", "ts_unix_ms", "snapshot_id", "ready", "ready_reasons"}

// ValidateFile validates a TriggerCards JSONL file per spec.md §4.5/§8:
// every line must be valid JSON with schema_version == "triggercard.v1" and
// the required fields present, except the final line which may be
// truncated (crash-tail) without counting as an error.
func ValidateFile(path string) ValidationResult {
	f, err := os.Open(path)
	if err != nil {
		return ValidationResult{Errors: []string{fmt.Sprintf("file not found: %s", path)}, Success: false}
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	var result ValidationResult
	nonEmpty := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			nonEmpty++
		}
	}

	seen := 0
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		seen++
		isLast := seen == nonEmpty

		var card map[string]interface{}
		if err := json.Unmarshal([]byte(line), &card); err != nil {
			if isLast {
				result.HasTruncatedLine = true
				result.TruncatedLineContent = line
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: json decode error: %v", seen, err))
			continue
		}

		sv, ok := card["schema_version"]
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: missing schema_version", seen))
			continue
		}
		if sv != snapshot.TriggerCardSchemaVersion {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid schema_version %q", seen, sv))
			continue
		}

		var missing []string
		for _, field := range requiredFields {
			if _, ok := card[field]; !ok {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: missing fields %v", seen, missing))
			continue
		}

		result.ValidCount++
	}

	result.Success = len(result.Errors) == 0
	return result
}
