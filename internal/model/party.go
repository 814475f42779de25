package model

import "strings"

// PartyID 是买家/农户在订单与商品记录上的统一标识。
// 早期导入的数据带有 "u:" 前缀，之后的数据一律存裸 id：
// 写入侧统一走 CanonicalPartyID 规范化，读取侧用 Forms 同时匹配两种形态，
// 任何一条记录只会命中其中一种，不会重复计数。
type PartyID string

const legacyPartyPrefix = "u:"

// CanonicalPartyID 规范化为裸 id 形态。
func CanonicalPartyID(s string) PartyID {
	return PartyID(strings.TrimPrefix(strings.TrimSpace(s), legacyPartyPrefix))
}

func (p PartyID) String() string { return string(p) }

// Forms 返回读查询需要匹配的全部存储形态。
func (p PartyID) Forms() []string {
	return []string{string(p), legacyPartyPrefix + string(p)}
}
