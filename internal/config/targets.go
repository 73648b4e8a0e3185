package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTargets parses the -f/-t target syntax: each argument is a
// comma-separated list of ids or id ranges, optionally suffixed with
// ":password" applying to every id in the argument.
//
//	"5"            one id
//	"1-4,9"        ids 1,2,3,4,9
//	"12-14:secret" ids 12,13,14, each unlocked by "secret"
//
// Appends to ids and fills passwords for suffixed entries.
func ParseTargets(args []string, passwords map[int]string) ([]int, error) {
	var ids []int

	for _, arg := range args {
		spec := arg
		password := ""
		if i := strings.Index(spec, ":"); i >= 0 {
			spec, password = spec[:i], spec[i+1:]
		}

		for _, item := range strings.Split(spec, ",") {
			lo, hi, err := parseRange(item)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrBadTargetRange, arg)
			}
			for id := lo; id <= hi; id++ {
				ids = append(ids, id)
				if password != "" {
					passwords[id] = password
				}
			}
		}
	}
	return ids, nil
}

// parseRange parses "n" or "lo-hi" into an inclusive range.
func parseRange(s string) (lo, hi int, err error) {
	if !strings.Contains(s, "-") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, 0, err
		}
		return n, n, nil
	}

	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range must have two bounds: %q", s)
	}
	lo, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	hi, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("descending range: %q", s)
	}
	return lo, hi, nil
}
