// Package config provides rule-set management for Naval Duel.
//
// The config package handles:
//   - Loading rule sets from YAML (or JSON) files
//   - Rule validation
//   - Default rule-set selection
//   - Rule-set discovery and listing
//
// Configuration Format:
//
// Rule sets live in the configs directory, one file per set:
//
//	name: classic
//	description: Classic 10x10 naval duel
//	board_size: 10
//	grace_seconds: 15
//	strict_turns: false
//
// Omitted fields keep the classic values; an omitted name falls back to the
// file name. strict_turns rejects out-of-turn shots and repeated cells,
// which the classic rules allow.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	rules, err := manager.LoadConfig("strict")
//	defaults := manager.GetDefault()
//
// The default is "classic" when present, otherwise the first valid file,
// otherwise built-in classic rules.
package config
