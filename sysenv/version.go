package sysenv

import (
	"regexp"
	"strings"
)

var versionRe = regexp.MustCompile(`([0-9]+)(?:\.([0-9]+))?`)

// codenames covers version strings that carry no digits at all,
// e.g. debian's "wheezy/sid" kernel-style suite names.
var codenames = map[string]string{
	"wheezy":   "7",
	"jessie":   "8",
	"stretch":  "9",
	"buster":   "10",
	"bullseye": "11",
	"bookworm": "12",
	"trixie":   "13",
	"sid":      "",
}

// ExtractVersion normalizes an arbitrary version string down to a
// MAJOR or MAJOR.MINOR pair: the first dot-separated numeric run
// wins, precision degrades gracefully, and an empty result means the
// release has no meaningful version.
func ExtractVersion(version string) (major, minor string) {
	m := versionRe.FindStringSubmatch(version)
	if m != nil {
		major = m[1]
		minor = m[2]
		return
	}

	for _, token := range strings.FieldsFunc(version, func(r rune) bool {
		return r == '/' || r == ' '
	}) {
		if v, found := codenames[strings.ToLower(token)]; found && v != "" {
			major = v
			return
		}
	}

	return
}
