package cache

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Condition kinds understood by the store. A condition set is evaluated
// conjunctively: an entry is valid only if it exists and every declared
// condition passes.
const (
	// CondMaxAge limits the entry's age. Value: time.Duration or integer seconds.
	CondMaxAge = "max_age"

	// CondYoungerThan requires the entry to be strictly newer than each
	// referenced path. Value: string or []string. References that are remote
	// URLs or do not exist are skipped.
	CondYoungerThan = "younger_than"

	// CondMinSize requires a minimum entry size in bytes. Value: integer.
	CondMinSize = "min_size"
)

// Conditions maps condition kinds to their values.
type Conditions map[string]interface{}

// Validate checks that every declared kind is known and its value has a
// usable type. It runs before any filesystem access so that a bad condition
// set fails the same way whether or not the entry exists.
func (c Conditions) Validate() error {
	for kind, value := range c {
		var err error
		switch kind {
		case CondMaxAge:
			_, err = durationValue(kind, value)
		case CondYoungerThan:
			_, err = pathsValue(kind, value)
		case CondMinSize:
			_, err = sizeValue(kind, value)
		default:
			return fmt.Errorf("%w: %q", ErrUnsupportedCondition, kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// evaluate reports whether the file at path satisfies every condition. The
// condition set must have been validated first. Evaluation short-circuits on
// the first failing condition.
func evaluate(path string, conds Conditions) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	if v, ok := conds[CondMaxAge]; ok {
		maxAge, _ := durationValue(CondMaxAge, v)
		if time.Since(info.ModTime()) > maxAge {
			return false
		}
	}

	if v, ok := conds[CondYoungerThan]; ok {
		refs, _ := pathsValue(CondYoungerThan, v)
		for _, ref := range refs {
			if isRemote(ref) {
				continue
			}
			refInfo, err := os.Stat(ref)
			if err != nil {
				continue
			}
			if !info.ModTime().After(refInfo.ModTime()) {
				return false
			}
		}
	}

	if v, ok := conds[CondMinSize]; ok {
		minSize, _ := sizeValue(CondMinSize, v)
		if info.Size() < minSize {
			return false
		}
	}

	return true
}

// isRemote reports whether a younger_than reference is a URL. Remote
// references are never checked against the filesystem.
func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func durationValue(kind string, v interface{}) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case int:
		return time.Duration(d) * time.Second, nil
	case int64:
		return time.Duration(d) * time.Second, nil
	default:
		return 0, fmt.Errorf("%w: %s wants a duration or integer seconds, got %T", ErrConditionValue, kind, v)
	}
}

func pathsValue(kind string, v interface{}) ([]string, error) {
	switch p := v.(type) {
	case string:
		return []string{p}, nil
	case []string:
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %s wants a path or a list of paths, got %T", ErrConditionValue, kind, v)
	}
}

func sizeValue(kind string, v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s wants a byte count, got %T", ErrConditionValue, kind, v)
	}
}
