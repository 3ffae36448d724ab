package executor

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

var rootIDPattern = regexp.MustCompile(`^\s*ROOTID\s*=\s*["']?([^"']+)["']?`)

// extractRootID scans a DC file for a ROOTID assignment, matching the
// reference tooling's plain-text scan rather than a full DC-file parser.
func extractRootID(dcPath string) (string, error) {
	f, err := os.Open(dcPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if m := rootIDPattern.FindStringSubmatch(line); m != nil {
			return m[1], nil
		}
	}
	return "", scanner.Err()
}
