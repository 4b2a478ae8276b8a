package model

// Special care flags used by patients and partner capability profiles
const (
	CareFlagDementia    = "dementia"
	CareFlagPalliative  = "palliative"
	CareFlagComplexCare = "complex_care"
	CareFlagBilingual   = "bilingual"
)

// Patient is the subset of the patient record the engine reads
type Patient struct {
	ID               int64
	OrganizationID   int64
	Name             string
	Location         *GeoPoint
	PostalCode       string
	SpecialCareNeeds []string
}

// SkillRequirement is a skill a service type needs, with the minimum level
type SkillRequirement struct {
	SkillID        int64
	MinProficiency Proficiency
}

// ServiceType is a kind of care visit (personal support, nursing, ...)
type ServiceType struct {
	ID             int64
	Name           string
	RequiredSkills []SkillRequirement

	// QualifiedRoleIDs comes from the role-to-service capability table
	QualifiedRoleIDs []int64
}

// QualifiesRole returns true if staff holding the role may deliver this service
func (st *ServiceType) QualifiesRole(roleID int64) bool {
	for _, id := range st.QualifiedRoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}
