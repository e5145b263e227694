package settings

import (
	"fmt"
	"strings"
	"time"
)

type SiteSettings struct {
	SiteName        string    `json:"site_name"`
	SiteDescription string    `json:"site_description"`
	ContactEmail    string    `json:"contact_email"`
	ContactPhone    string    `json:"contact_phone"`
	Address         string    `json:"address"`
	MetaTitle       string    `json:"meta_title"`
	MetaDescription string    `json:"meta_description"`
	MetaKeywords    string    `json:"meta_keywords"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SiteSettingsUpdate is a partial update, nil fields are left untouched.
type SiteSettingsUpdate struct {
	SiteName        *string `json:"site_name" validate:"omitempty,max=200"`
	SiteDescription *string `json:"site_description" validate:"omitempty,max=1000"`
	ContactEmail    *string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone    *string `json:"contact_phone" validate:"omitempty,max=50"`
	Address         *string `json:"address" validate:"omitempty,max=500"`
	MetaTitle       *string `json:"meta_title" validate:"omitempty,max=200"`
	MetaDescription *string `json:"meta_description" validate:"omitempty,max=1000"`
	MetaKeywords    *string `json:"meta_keywords" validate:"omitempty,max=1000"`
}

type column struct {
	name  string
	value func(u *SiteSettingsUpdate) *string
	apply func(s *SiteSettings, v string)
}

// in SET clause order
var columns = []column{
	{
		name:  "site_name",
		value: func(u *SiteSettingsUpdate) *string { return u.SiteName },
		apply: func(s *SiteSettings, v string) { s.SiteName = v },
	},
	{
		name:  "site_description",
		value: func(u *SiteSettingsUpdate) *string { return u.SiteDescription },
		apply: func(s *SiteSettings, v string) { s.SiteDescription = v },
	},
	{
		name:  "contact_email",
		value: func(u *SiteSettingsUpdate) *string { return u.ContactEmail },
		apply: func(s *SiteSettings, v string) { s.ContactEmail = v },
	},
	{
		name:  "contact_phone",
		value: func(u *SiteSettingsUpdate) *string { return u.ContactPhone },
		apply: func(s *SiteSettings, v string) { s.ContactPhone = v },
	},
	{
		name:  "address",
		value: func(u *SiteSettingsUpdate) *string { return u.Address },
		apply: func(s *SiteSettings, v string) { s.Address = v },
	},
	{
		name:  "meta_title",
		value: func(u *SiteSettingsUpdate) *string { return u.MetaTitle },
		apply: func(s *SiteSettings, v string) { s.MetaTitle = v },
	},
	{
		name:  "meta_description",
		value: func(u *SiteSettingsUpdate) *string { return u.MetaDescription },
		apply: func(s *SiteSettings, v string) { s.MetaDescription = v },
	},
	{
		name:  "meta_keywords",
		value: func(u *SiteSettingsUpdate) *string { return u.MetaKeywords },
		apply: func(s *SiteSettings, v string) { s.MetaKeywords = v },
	},
}

// Empty reports whether u changes nothing.
func (u *SiteSettingsUpdate) Empty() bool {
	for _, c := range columns {
		if c.value(u) != nil {
			return false
		}
	}
	return true
}

// ApplyTo copies the present fields of u onto s.
func (u *SiteSettingsUpdate) ApplyTo(s *SiteSettings) {
	for _, c := range columns {
		if v := c.value(u); v != nil {
			c.apply(s, *v)
		}
	}
}

// buildSetClause returns the SET clause for the present fields of u, with
// positional parameters starting at $1, and their values. The updated_at
// column is always touched.
func buildSetClause(u *SiteSettingsUpdate) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	for _, c := range columns {
		v := c.value(u)
		if v == nil {
			continue
		}
		args = append(args, *v)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", c.name, len(args)))
	}
	clauses = append(clauses, "updated_at = NOW()")
	return strings.Join(clauses, ", "), args
}
