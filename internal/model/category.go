package model

// 站点固定的栏目集合
const (
	CategoryMarkets         = "markets"
	CategoryEconomy         = "economy"
	CategoryStocks          = "stocks"
	CategoryCrypto          = "crypto"
	CategoryCommodities     = "commodities"
	CategoryForex           = "forex"
	CategoryPersonalFinance = "personal-finance"
	CategoryPolicy          = "policy"
	CategoryEarnings        = "earnings"
	CategoryGlobal          = "global"
)

// Categories 栏目定义，顺序即导航顺序
var Categories = []struct {
	Slug  string
	Title string
}{
	{CategoryMarkets, "Markets"},
	{CategoryEconomy, "Economy"},
	{CategoryStocks, "Stocks"},
	{CategoryCrypto, "Crypto"},
	{CategoryCommodities, "Commodities"},
	{CategoryForex, "Forex"},
	{CategoryPersonalFinance, "Personal Finance"},
	{CategoryPolicy, "Policy"},
	{CategoryEarnings, "Earnings"},
	{CategoryGlobal, "Global"},
}

// CategorySlugs 返回所有栏目标识
func CategorySlugs() []string {
	slugs := make([]string, 0, len(Categories))
	for _, c := range Categories {
		slugs = append(slugs, c.Slug)
	}
	return slugs
}

// IsValidCategory 判断栏目是否合法
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c.Slug == category {
			return true
		}
	}
	return false
}
