package domain

import "time"

// Company owns routes. Admins is the single source of truth for
// administration; LegacyAdminID mirrors the first admin for older clients.
type Company struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Address       string    `json:"address"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Website       string    `json:"website,omitempty"`
	Logo          string    `json:"logo,omitempty"`
	Active        bool      `json:"is_active"`
	LegacyAdminID string    `json:"admin_user,omitempty"`
	Admins        []string  `json:"admins"`
	CreatedAt     time.Time `json:"created_at"`
}

// AddAdmin adds userID to the administrators set and fills the legacy
// single-admin field when it is still empty.
func (c *Company) AddAdmin(userID string) {
	if userID == "" {
		return
	}
	if !c.IsAdmin(userID) {
		c.Admins = append(c.Admins, userID)
	}
	if c.LegacyAdminID == "" {
		c.LegacyAdminID = userID
	}
}

// IsAdmin reports whether userID administers the company.
func (c Company) IsAdmin(userID string) bool {
	if userID == "" {
		return false
	}
	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}
	return false
}

// CanManage reports whether the caller may mutate the company's catalog.
func (c Company) CanManage(id Identity) bool {
	return id.Staff || c.IsAdmin(id.Subject)
}

// NormalizeAdmins folds a legacy admin that predates the administrators
// set into it, so both representations grant the same rights.
func (c *Company) NormalizeAdmins() {
	if c.LegacyAdminID != "" && !c.IsAdmin(c.LegacyAdminID) {
		c.Admins = append([]string{c.LegacyAdminID}, c.Admins...)
	}
	if c.LegacyAdminID == "" && len(c.Admins) > 0 {
		c.LegacyAdminID = c.Admins[0]
	}
}
