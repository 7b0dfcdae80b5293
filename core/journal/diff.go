package journal

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff of the indented payloads of `a` and `b`; it is empty when they are equal.
func Diff(a, b Submission) (string, error) {
	aLines, err := payloadLines(a)
	if err != nil {
		return "", errors.Wrapf(err, "submission %s", a.ID)
	}
	bLines, err := payloadLines(b)
	if err != nil {
		return "", errors.Wrapf(err, "submission %s", b.ID)
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        aLines,
		B:        bLines,
		FromFile: a.ID,
		FromDate: a.CreatedAt.Format("2006-01-02 15:04:05"),
		ToFile:   b.ID,
		ToDate:   b.CreatedAt.Format("2006-01-02 15:04:05"),
		Context:  3,
	})
}

func payloadLines(sub Submission) ([]string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, sub.Payload, "", "  "); err != nil {
		return nil, errors.Wrap(err, "indenting payload")
	}
	return difflib.SplitLines(buf.String()), nil
}
