// Package ci derives the build context for the current run from GitHub
// Actions environment variables.
package ci

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/qualgate/qualgate/internal/model"
)

// BuildContextFromEnv reads the GitHub Actions environment and returns the
// build context for the current run. Commit SHA and run id are required;
// everything else degrades to empty or nil.
func BuildContextFromEnv() (model.BuildContext, error) {
	sha := os.Getenv("GITHUB_SHA")
	runID := os.Getenv("GITHUB_RUN_ID")
	if sha == "" || runID == "" {
		return model.BuildContext{}, fmt.Errorf("ci: GITHUB_SHA and GITHUB_RUN_ID are required")
	}

	runNumber, _ := strconv.ParseInt(os.Getenv("GITHUB_RUN_NUMBER"), 10, 64)

	b := model.BuildContext{
		CommitSHA: sha,
		Branch:    os.Getenv("GITHUB_REF_NAME"),
		RunID:     runID,
		RunNumber: runNumber,
		Actor:     os.Getenv("GITHUB_ACTOR"),
		EventName: os.Getenv("GITHUB_EVENT_NAME"),
		Timestamp: time.Now().UTC(),
	}

	// Pull request runs carry the source branch in GITHUB_HEAD_REF and the
	// PR number inside GITHUB_REF ("refs/pull/123/merge").
	if head := os.Getenv("GITHUB_HEAD_REF"); head != "" {
		b.Branch = head
		b.PRHead = &head
		if base := os.Getenv("GITHUB_BASE_REF"); base != "" {
			b.PRBase = &base
		}
		if n, ok := prNumberFromRef(os.Getenv("GITHUB_REF")); ok {
			b.PRNumber = &n
		}
	}
	return b, nil
}

func prNumberFromRef(ref string) (int64, bool) {
	rest, ok := strings.CutPrefix(ref, "refs/pull/")
	if !ok {
		return 0, false
	}
	num, _, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
