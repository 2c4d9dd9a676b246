package autoplay

import (
	"fmt"
	"sort"
	"strings"
)

// Preset bundles engine options and search limits under one name.
type Preset struct {
	Name    string
	Options Options
	Limits  Limits
	Weights []float64
}

var presets = map[string]Preset{
	"level1": {
		Name:    "level1",
		Options: Options{SkillLevel: 0, HashMB: 16, MultiPV: 3},
		Limits:  Limits{Depth: 5, MoveTimeMillis: 20},
		Weights: []float64{0.5, 0.3, 0.2},
	},
	"level2": {
		Name:    "level2",
		Options: Options{SkillLevel: 1, HashMB: 24, MultiPV: 3},
		Limits:  Limits{Depth: 8, MoveTimeMillis: 80},
		Weights: []float64{0.7, 0.2, 0.1},
	},
	"level3": {
		Name:    "level3",
		Options: Options{SkillLevel: 7, HashMB: 48, MultiPV: 3},
		Limits:  Limits{Depth: 12, MoveTimeMillis: 200},
		Weights: []float64{0.7, 0.2, 0.1},
	},
	"level4": {
		Name:    "level4",
		Options: Options{SkillLevel: 11, HashMB: 64, MultiPV: 2},
		Limits:  Limits{Depth: 16, MoveTimeMillis: 300},
		Weights: []float64{0.8, 0.2},
	},
	"level5": {
		Name:    "level5",
		Options: Options{SkillLevel: 16, HashMB: 96, MultiPV: 2},
		Limits:  Limits{Depth: 20, MoveTimeMillis: 500},
		Weights: []float64{0.85, 0.15},
	},
	"level6": {
		Name:    "level6",
		Options: Options{SkillLevel: 20, HashMB: 128, MultiPV: 1},
		Limits:  Limits{Depth: 30, MoveTimeMillis: 1000},
	},
}

// PresetByName looks a preset up case-insensitively.
func PresetByName(name string) (Preset, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, fmt.Errorf("unknown autoplay preset %q (have %s)", name, strings.Join(PresetNames(), ", "))
	}
	p.Weights = append([]float64(nil), p.Weights...)
	return p, nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
