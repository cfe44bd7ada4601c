package viewer

// User type constants, as issued by ClubFlow.
const (
	TypeCustomer = "customer"
	TypeStaff    = "staff"
	TypeTrainer  = "trainer"
	TypeManager  = "manager"
	TypeAdmin    = "admin"
)

// ValidUserTypes contains all valid user type values.
var ValidUserTypes = []string{TypeCustomer, TypeStaff, TypeTrainer, TypeManager, TypeAdmin}

// Tier is a privilege level in the studio's role hierarchy.
type Tier int

// Tiers in ascending order of privilege.
const (
	TierNone Tier = iota
	TierCustomer
	TierStaff
	TierOwner
)

// String returns the tier name used in logs.
func (t Tier) String() string {
	switch t {
	case TierCustomer:
		return "customer"
	case TierStaff:
		return "staff"
	case TierOwner:
		return "owner"
	default:
		return "none"
	}
}

// TierOf maps a user type to its tier. Unknown or empty types have no privileges.
func TierOf(userType string) Tier {
	switch userType {
	case TypeCustomer:
		return TierCustomer
	case TypeStaff, TypeTrainer:
		return TierStaff
	case TypeManager, TypeAdmin:
		return TierOwner
	default:
		return TierNone
	}
}

// HasAdminAccess reports whether the user type may enter the staff/admin area.
func HasAdminAccess(userType string) bool {
	return TierOf(userType) >= TierStaff
}

// IsOwner reports whether the user type holds owner-level privilege.
func IsOwner(userType string) bool {
	return TierOf(userType) == TierOwner
}

// IsValidUserType reports whether userType is one of ValidUserTypes.
func IsValidUserType(userType string) bool {
	return TierOf(userType) != TierNone
}
