package adapter

import "strings"

// 各市场的分类/成色映射表
// 提供方的类目体系差异很大且会变，这里只维护常用映射，
// 匹配不上的一律落到通用 "other" 值，绝不因为类目失败整个发布

// ==================== eBay ====================

// eBay leaf category IDs (常用类目)
var ebayCategoryTable = map[string]string{
	"electronics":     "293",
	"computer":        "58058",
	"laptop":          "175672",
	"phone":           "9355",
	"mouse":           "23160",
	"keyboard":        "33963",
	"clothing":        "11450",
	"shoes":           "93427",
	"toys":            "220",
	"books":           "267",
	"home":            "11700",
	"furniture":       "3197",
	"sporting goods":  "888",
	"jewelry":         "281",
	"musical":         "619",
	"video games":     "1249",
	"camera":          "625",
	"collectibles":    "1",
}

const ebayCategoryOther = "99" // Everything Else

// eBay condition enum (Inventory API)
var ebayConditionTable = map[string]string{
	"new":        "NEW",
	"brand new":  "NEW",
	"like new":   "LIKE_NEW",
	"open box":   "NEW_OTHER",
	"excellent":  "USED_EXCELLENT",
	"very good":  "USED_VERY_GOOD",
	"good":       "USED_GOOD",
	"fair":       "USED_ACCEPTABLE",
	"acceptable": "USED_ACCEPTABLE",
	"used":       "USED_GOOD",
	"refurbish":  "SELLER_REFURBISHED",
	"parts":      "FOR_PARTS_OR_NOT_WORKING",
	"broken":     "FOR_PARTS_OR_NOT_WORKING",
}

const ebayConditionDefault = "USED_GOOD"

// ==================== Etsy ====================

// Etsy taxonomy IDs
var etsyTaxonomyTable = map[string]int64{
	"electronics": 2280,
	"jewelry":     1179,
	"clothing":    374,
	"shoes":       1429,
	"home":        891,
	"furniture":   967,
	"toys":        974,
	"art":         66,
	"craft":       562,
	"bags":        132,
	"accessories": 1,
	"vintage":     69150433,
}

const etsyTaxonomyOther = 69150467 // Everything Else

// ==================== Craigslist ====================

// 城市名 -> craigslist 站点子域
var craigslistCityTable = map[string]string{
	"new york":      "newyork",
	"brooklyn":      "newyork",
	"los angeles":   "losangeles",
	"san francisco": "sfbay",
	"oakland":       "sfbay",
	"san jose":      "sfbay",
	"chicago":       "chicago",
	"seattle":       "seattle",
	"boston":        "boston",
	"austin":        "austin",
	"dallas":        "dallas",
	"houston":       "houston",
	"miami":         "miami",
	"denver":        "denver",
	"atlanta":       "atlanta",
	"portland":      "portland",
	"phoenix":       "phoenix",
	"philadelphia":  "philadelphia",
	"washington":    "washingtondc",
	"san diego":     "sandiego",
}

// 默认站点：城市没匹配上时用全国性最大的站点兜底
const craigslistCityDefault = "newyork"

// craigslist for-sale-by-owner 类目缩写
var craigslistCategoryTable = map[string]string{
	"electronics": "ela",
	"computer":    "sya",
	"phone":       "moa",
	"furniture":   "fua",
	"clothing":    "cla",
	"jewelry":     "jwa",
	"toys":        "taa",
	"books":       "bka",
	"sporting":    "sga",
	"tools":       "tla",
	"auto parts":  "pta",
	"bike":        "bia",
	"music":       "msa",
	"video game":  "vga",
}

// 默认 "general for sale"
const craigslistCategoryDefault = "foa"

// ==================== 匹配逻辑 ====================

// lookupLongestMatch 最长子串匹配
// 表里 key 是子串还是全称都可以：取输入中能命中的最长 key
func lookupLongestMatch(table map[string]string, input, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return fallback
	}

	best := ""
	for key := range table {
		if strings.Contains(normalized, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return fallback
	}
	return table[best]
}

// MapEbayCategory 商品类目 -> eBay category ID
func MapEbayCategory(category string) string {
	return lookupLongestMatch(ebayCategoryTable, category, ebayCategoryOther)
}

// MapEbayCondition 商品成色 -> eBay condition enum
func MapEbayCondition(condition string) string {
	return lookupLongestMatch(ebayConditionTable, condition, ebayConditionDefault)
}

// MapEtsyTaxonomy 商品类目 -> Etsy taxonomy ID
func MapEtsyTaxonomy(category string) int64 {
	normalized := strings.ToLower(strings.TrimSpace(category))
	if normalized == "" {
		return etsyTaxonomyOther
	}

	best := ""
	for key := range etsyTaxonomyTable {
		if strings.Contains(normalized, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return etsyTaxonomyOther
	}
	return etsyTaxonomyTable[best]
}

// MapCraigslistCity 自由文本城市名 -> craigslist 站点子域
func MapCraigslistCity(city string) string {
	return lookupLongestMatch(craigslistCityTable, city, craigslistCityDefault)
}

// MapCraigslistCategory 商品类目 -> craigslist 类目缩写
func MapCraigslistCategory(category string) string {
	return lookupLongestMatch(craigslistCategoryTable, category, craigslistCategoryDefault)
}
