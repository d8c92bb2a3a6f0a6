package license

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ErrArtifactNotFound means the generator ran but left no artifact behind.
// Fatal for the line item; never retried automatically.
var ErrArtifactNotFound = errors.New("no license artifact found after generation")

// artifactExt is the extension the generator uses for its output files.
const artifactExt = ".lic"

var strictSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// candidateNames returns deterministic artifact filenames derived from the
// buyer email, most specific first. Generators differ in how aggressively
// they sanitize the email, so both known variants are tried.
func candidateNames(buyerEmail string) []string {
	simple := strings.NewReplacer("@", "_", ".", "_", "+", "_").Replace(buyerEmail) + artifactExt
	strict := strictSanitizer.ReplaceAllString(buyerEmail, "_") + artifactExt

	if strict == simple {
		return []string{simple}
	}
	return []string{simple, strict}
}

// resolveArtifact locates the generated artifact inside dir, returns its
// exact content and deletes the backing file. The file never outlives one
// read: its name is derived from buyer identity, and a stale copy could be
// picked up by a later request for the same buyer.
//
// dir is a request-private workspace, so the fallback scan for any artifact
// file cannot observe another request's output.
func resolveArtifact(dir, buyerEmail string) ([]byte, error) {
	for _, name := range candidateNames(buyerEmail) {
		content, err := readAndRemove(filepath.Join(dir, name))
		if err == nil {
			return content, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read artifact %s: %w", name, err)
		}
	}

	// Sanitization mismatch fallback: take any artifact in the workspace.
	matches, err := filepath.Glob(filepath.Join(dir, "*"+artifactExt))
	if err != nil {
		return nil, fmt.Errorf("scan workspace: %w", err)
	}
	sort.Strings(matches)
	if len(matches) > 0 {
		content, err := readAndRemove(matches[0])
		if err != nil {
			return nil, fmt.Errorf("read artifact %s: %w", filepath.Base(matches[0]), err)
		}
		return content, nil
	}

	return nil, ErrArtifactNotFound
}

// readAndRemove reads path and unconditionally deletes it afterwards.
func readAndRemove(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("delete consumed artifact: %w", err)
	}
	return content, nil
}
