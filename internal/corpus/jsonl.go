package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/qaforge/qa-forge/internal/pkg/errors"
)

var (
	errMissingID      = errors.ValidationError("fragment id is required")
	errMissingContent = errors.ValidationError("fragment content is empty")
)

// LoadJSONL reads fragments from a JSON-lines file, one fragment object
// per line. Blank lines are skipped; a malformed or invalid line fails
// the whole load with its line number.
func LoadJSONL(path string) ([]Fragment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, "opening fragments file", err)
	}
	defer f.Close()

	var fragments []Fragment

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var frag Fragment
		if err := json.Unmarshal([]byte(line), &frag); err != nil {
			return nil, errors.Wrap(errors.CodeValidation, fmt.Sprintf("line %d: invalid fragment", lineNo), err)
		}
		if err := frag.Validate(); err != nil {
			return nil, errors.Wrap(errors.CodeValidation, fmt.Sprintf("line %d", lineNo), err)
		}

		fragments = append(fragments, frag)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.InternalError("reading fragments file", err)
	}

	return fragments, nil
}
