package postprocess

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// NoChanges is the diff body substituted when the fixed code is
// textually identical to the original.
const NoChanges = "No changes detected"

// unifiedDiff computes a line-level unified diff between the original
// and fixed code, labeled original.<language> / fixed.<language>.
func unifiedDiff(original, fixed, language string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(fixed),
		FromFile: fmt.Sprintf("original.%s", language),
		ToFile:   fmt.Sprintf("fixed.%s", language),
		Context:  3,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("computing diff: %w", err)
	}
	return text, nil
}
