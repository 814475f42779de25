package auth

import "farm_market/internal/model"

// Principal 已认证的调用方身份。所有核心写操作显式接收 Principal
// 并自行校验角色与归属，不信任路由层的前置检查。
type Principal struct {
	ID      model.PartyID
	Name    string
	Email   string
	Contact string
	Role    model.Role
}

func (p Principal) IsFarmer() bool { return p.Role == model.RoleFarmer }
func (p Principal) IsClient() bool { return p.Role == model.RoleClient }

// Owns 判断身份是否对应某条记录上的参与方标识（兼容两种存储形态）。
func (p Principal) Owns(id model.PartyID) bool {
	return model.CanonicalPartyID(id.String()) == p.ID
}
