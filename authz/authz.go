// Package authz holds the ownership gate for study mutation. Decisions are
// pure functions over (caller, resource); nothing is cached between
// requests.
package authz

import "study-booking-api/models"

type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// CanManageStudy gates every mutation of a study or its descendants:
// only the owning user may proceed. Reads are not gated at all.
func CanManageStudy(callerID uint, study *models.Study) Decision {
	if study == nil {
		return Deny("study not found")
	}
	if study.OwnerID == callerID {
		return Allow()
	}
	return Deny("only the study owner can perform this action")
}
