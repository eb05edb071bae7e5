package setup

import (
	"fmt"
	"regexp"
	"strconv"
)

// auxNamePattern matches <owner>_<role>[_not_used]_<n>. Longer owner
// prefixes are listed first.
var auxNamePattern = regexp.MustCompile(
	`^(path_table|path_link|path_set|ai_list|pad3d_names|pad_names|pad3d|pad|trailer)_` +
		`(neighbors|groups|indices|ids|script|name|filler)(_not_used)?_(\d+)$`)

type auxName struct {
	owner   Kind
	role    Role
	notUsed bool
	order   int
}

func ownerPrefix(l *layout, k Kind) string {
	if k == Trailer {
		return trailerPrefix
	}
	return l.spec(k).prefix
}

func parseAuxName(l *layout, name string) (auxName, bool) {
	m := auxNamePattern.FindStringSubmatch(name)
	if m == nil {
		return auxName{}, false
	}
	owner := Trailer
	if m[1] != trailerPrefix {
		found := false
		for k := range NumSections {
			if l.spec(k).prefix == m[1] {
				owner, found = k, true
				break
			}
		}
		if !found {
			return auxName{}, false
		}
	}
	role, ok := parseRole(m[2])
	if !ok {
		return auxName{}, false
	}
	n, err := strconv.Atoi(m[4])
	if err != nil {
		return auxName{}, false
	}
	return auxName{owner: owner, role: role, notUsed: m[3] != "", order: n}, true
}

func formatAuxName(l *layout, owner Kind, role Role, notUsed bool, n int) string {
	if notUsed && role != RoleFiller {
		return fmt.Sprintf("%s_%s_not_used_%d", ownerPrefix(l, owner), role, n)
	}
	return fmt.Sprintf("%s_%s_%d", ownerPrefix(l, owner), role, n)
}
