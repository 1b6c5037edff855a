// Package ignore implements path-based exclusion for the tree walks.
package ignore

import (
	"fmt"
	"regexp"
)

// Checker decides which walked paths are skipped.
type Checker struct {
	// user is the optional pattern supplied with the ignorePaths option
	user *regexp.Regexp
}

// Rule identifies why a path was ignored.
type Rule int

const (
	// RuleNone means the path is not ignored.
	RuleNone Rule = iota

	// RuleUser is the configured ignorePaths pattern.
	RuleUser

	// RuleSystemFile matches file-manager droppings such as .DS_Store.
	RuleSystemFile

	// RuleTestFile matches test sources (name.test.js).
	RuleTestFile

	// RuleAsset matches image assets that can never hold module code.
	RuleAsset
)

func (r Rule) String() string {
	switch r {
	case RuleNone:
		return "none"
	case RuleUser:
		return "ignorePaths"
	case RuleSystemFile:
		return "system file"
	case RuleTestFile:
		return "test file"
	case RuleAsset:
		return "asset"
	}
	return fmt.Sprintf("Rule(%d)", int(r))
}

// Built-in patterns applied to files under container roots.
var (
	// systemFilePattern matches .DS_Store in any case
	systemFilePattern = regexp.MustCompile(`(?i)\.ds_store`)

	// testFilePattern matches name.test.ext
	testFilePattern = regexp.MustCompile(`\.test\.`)

	// assetPattern matches image extensions
	assetPattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)$`)
)

// NewChecker creates a checker for the given ignorePaths pattern. An empty pattern
// ignores nothing beyond the built-in container rules.
func NewChecker(pattern string) (*Checker, error) {
	c := &Checker{}
	if pattern == "" {
		return c, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile ignore pattern %q: %w", pattern, err)
	}
	c.user = re
	return c, nil
}

// Pattern returns the configured ignorePaths pattern, or empty.
func (c *Checker) Pattern() string {
	if c == nil || c.user == nil {
		return ""
	}
	return c.user.String()
}

// Match reports whether the configured pattern matches path. It applies to every walked
// file and directory; a matching directory is pruned.
func (c *Checker) Match(path string) bool {
	return c != nil && c.user != nil && c.user.MatchString(path)
}

// MatchContainerFile reports which rule, if any, excludes a file found under a container
// root from being mapped.
func (c *Checker) MatchContainerFile(path string) Rule {
	switch {
	case c.Match(path):
		return RuleUser
	case systemFilePattern.MatchString(path):
		return RuleSystemFile
	case testFilePattern.MatchString(path):
		return RuleTestFile
	case assetPattern.MatchString(path):
		return RuleAsset
	}
	return RuleNone
}
