package service

import (
	"github.com/portal-admin/internal/auth"
	"github.com/portal-admin/internal/types"
)

// Role policies of the generic collections
var (
	// ContentPolicy covers published site content: readable by every
	// signed-in user, managed by administrators
	ContentPolicy = Policy{
		Write:  auth.Admins,
		Delete: auth.Admins,
	}

	// FeedbackPolicy keeps citizen feedback visible to administrators only
	FeedbackPolicy = Policy{
		Read:   auth.Admins,
		Write:  auth.Admins,
		Delete: auth.Admins,
	}

	// AgentFeePolicy lets administrators price agents; only a super admin
	// removes an override
	AgentFeePolicy = Policy{
		Read:   auth.Admins,
		Write:  auth.Admins,
		Delete: []types.Role{types.RoleSuperAdmin},
	}
)
