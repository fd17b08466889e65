// Package zones resolves internal level paths to stable zone signatures,
// display names, and hub/sub-zone classification.
//
// The tables below are grounded on original_source/src/titrack/data/zones.py:
// a substring-keyed display-name map, an ambiguous-zone table resolved by
// (levelId % 100), and an exact levelId table for special zones that do not
// follow the path convention. Per spec.md §9 Open Question (a), these are
// treated as configuration data, not code, and can be extended without
// touching the resolution logic below.
package zones

import (
	"regexp"
	"strings"
)

// DisplayNames maps a path substring to an English display name.
var DisplayNames = map[string]string{
	"XZ_YuJinZhiXiBiNanSuo":     "Hideout - Ember's Rest",
	"DD_ShengTingZhuangYuan":    "Hideout - Sacred Court Manor",
	"YunDuanLvZhou":             "Cloud Oasis",
	"DD_ShengTingZhuangYuan000": "Voidlands - Mundane Palace",
	"KD_YuanSuKuangDong":        "Blistering Lava Sea - Elemental Mine",
	"DD_ChaoBaiZhiLu":           "Blistering Lava Sea - Path of Sacrifice",
	"GeBuLinCunLuo":             "Demiman Village",
	"YL_BeiFengLinDi":           "Grimwind Woods",
	"YJ_XiuShiShenYuan":         "Rusted Abyss",
	"LieXiKongJing":             "Rift of Dimensions",
	"SuMingTaLuo":               "Fateful Contest",
	"XuHaiZhongGang":            "Void Sea Terminal",
}

// AmbiguousZones resolves a path substring shared by multiple regions using
// the levelId suffix (levelId % 100).
var AmbiguousZones = map[string]map[int]string{
	"YL_BeiFengLinDi": {
		6:  "Glacial Abyss - Grimwind Woods",
		54: "Voidlands - Grimwind Woods",
	},
	"KD_YuanSuKuangDong000": {
		12: "Blistering Lava Sea - Elemental Mine",
		55: "Voidlands - Elemental Mine",
	},
	"GeBuLinCunLuo": {
		2: "Glacial Abyss - Demiman Village",
	},
}

// LevelIDZones resolves exact levelIds that do not follow the path
// convention at all (bosses, secret realms, and the like).
var LevelIDZones = map[int]string{
	3016:   "Blistering Lava Sea - Hellfire Chasm",
	3006:   "Glacial Abyss - Throne of Winter",
	3036:   "Thunder Wastes - Summit of Thunder",
	3026:   "Steel Forge - Imaginary Monument",
	3046:   "Voidlands - Dreamless Abyss",
	234020: "Secret Realm - Sea of Rites",
	212023: "Trial of Divinity",
	999901: "Path of the Brave",
	999902: "Path of the Brave",
	999903: "Path of the Brave",
	999904: "Path of the Brave",
	999905: "Path of the Brave",
}

// SubZonePatterns is the small explicit set of recognized sub-zone
// signatures whose loot must be spliced back into the outer run per
// spec.md §4.5. Matched against the resolved signature, not the raw path.
var SubZonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)nightmare`),
	regexp.MustCompile(`(?i)arcana`),
	regexp.MustCompile(`(?i)fateful contest`),
	regexp.MustCompile(`(?i)trial of divinity`),
}

// hubPatterns identify non-mapping zones: hideouts, towns, UI screens.
var hubPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)hideout`),
	regexp.MustCompile(`(?i)town`),
	regexp.MustCompile(`(?i)hub`),
	regexp.MustCompile(`(?i)lobby`),
	regexp.MustCompile(`(?i)social`),
	regexp.MustCompile(`(?i)YuJinZhiXiBiNanSuo`),
	regexp.MustCompile(`(?i)ShengTingZhuangYuan`),
	regexp.MustCompile(`(?i)ZhuCheng`),
	regexp.MustCompile(`(?i)/UI/`),
	regexp.MustCompile(`(?i)LoginScene`),
}

// Resolved carries the outcome of resolving a raw level path.
type Resolved struct {
	Signature   string
	DisplayName string
	IsHub       bool
	IsSubZone   bool
}

// Resolve derives a zone signature and display name from a raw level path
// (as captured from LevelEnter) and the LevelId that accompanies it.
//
// The signature is the resolved display name when known (stable across
// path variants of the same zone), falling back to a cleaned-up path
// fragment — mirroring get_zone_display_name in the reference
// implementation, generalized so signature and display name never diverge.
func Resolve(levelPath string, levelId int) Resolved {
	name := displayName(levelPath, levelId)
	sig := name
	return Resolved{
		Signature:   sig,
		DisplayName: name,
		IsHub:       isHub(levelPath, name),
		IsSubZone:   isSubZone(name),
	}
}

func displayName(levelPath string, levelId int) string {
	if levelId != 0 {
		if name, ok := LevelIDZones[levelId]; ok {
			return name
		}
		for pathFrag, suffixMap := range AmbiguousZones {
			if strings.Contains(levelPath, pathFrag) {
				if name, ok := suffixMap[levelId%100]; ok {
					return name
				}
			}
		}
	}

	for pathFrag, name := range DisplayNames {
		if strings.Contains(levelPath, pathFrag) {
			return name
		}
	}

	return fallbackName(levelPath)
}

// fallbackName extracts a readable zone code from an unrecognized path,
// e.g. /Game/Art/Maps/01SD/XZ_YuJinZhiXiBiNanSuo200/... -> XZ_YuJinZhiXiBiNanSuo.
var trailingDigits = regexp.MustCompile(`\d+$`)

func fallbackName(levelPath string) string {
	parts := strings.Split(levelPath, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		if part == "" || part == "Main" || strings.HasPrefix(part, "Game") || strings.HasPrefix(part, "Art") {
			continue
		}
		cleaned := trailingDigits.ReplaceAllString(part, "")
		if cleaned != "" {
			return cleaned
		}
		return part
	}
	return levelPath
}

func isHub(levelPath, resolvedName string) bool {
	for _, p := range hubPatterns {
		if p.MatchString(levelPath) || p.MatchString(resolvedName) {
			return true
		}
	}
	return strings.HasPrefix(resolvedName, "Hideout")
}

func isSubZone(resolvedName string) bool {
	for _, p := range SubZonePatterns {
		if p.MatchString(resolvedName) {
			return true
		}
	}
	return false
}
