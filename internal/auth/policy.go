package auth

import "audit-backend/internal/models"

// CanManage reports whether actor supervises target.
//
// admin supervises everyone, a vendor its team leaders and their workers,
// a team leader its own workers. leader is target's team leader and is only
// consulted when a vendor acts on a worker; it may be nil otherwise.
func CanManage(actor, target, leader *models.User) bool {
	if actor == nil || target == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleVendor:
		switch target.Role {
		case models.RoleTeamLeader:
			return target.VendorID != nil && *target.VendorID == actor.ID
		case models.RoleWorker:
			return leader != nil && target.TeamLeaderID != nil && *target.TeamLeaderID == leader.ID &&
				leader.VendorID != nil && *leader.VendorID == actor.ID
		}
	case models.RoleTeamLeader:
		return target.Role == models.RoleWorker && target.TeamLeaderID != nil && *target.TeamLeaderID == actor.ID
	}
	return false
}

// CanView is CanManage plus self access
func CanView(actor, target, leader *models.User) bool {
	if actor != nil && target != nil && actor.ID == target.ID {
		return true
	}
	return CanManage(actor, target, leader)
}
