package querycache

import "fmt"

// Strategy selects how one cached query resolves: whether the fetch runs,
// whether its result is persisted, and whether the result is reloaded from
// storage.
type Strategy string

const (
	// StrategyPassThrough runs the fetch and returns its result without
	// touching storage. The zero Strategy normalizes to this.
	StrategyPassThrough Strategy = "pass_through"
	// StrategyCreate always runs the fetch and persists the result when a
	// writer is configured.
	StrategyCreate Strategy = "create"
	// StrategyFile never runs the fetch; the result comes from storage.
	StrategyFile Strategy = "file"
	// StrategyLazy resolves to StrategyFile when the target path already
	// exists, otherwise StrategyCreate. The existence check happens exactly
	// once, before any fetch, write or read.
	StrategyLazy Strategy = "lazy"
)

// ParseStrategy converts an externally supplied name to a Strategy. The
// empty string is accepted and maps to pass-through.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case "":
		return StrategyPassThrough, nil
	case StrategyPassThrough, StrategyCreate, StrategyFile, StrategyLazy:
		return s, nil
	default:
		return "", fmt.Errorf("unknown query strategy %q", name)
	}
}
