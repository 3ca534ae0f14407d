// Package domain defines the account record model shared by the accounts
// bounded context: the typed fields the creation saga depends on plus an open
// attribute map for solution-specific data.
package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entity discriminators for account records.
const (
	EntityUser         = "User"
	EntityOrganization = "Organization"
)

// Lifecycle state codes.
const (
	StateActive  = 0
	StateDeleted = -1
)

// Status codes with domain meaning.
const (
	StatusDefault   = 0
	StatusInviteOut = 5
	StatusActivated = 10
)

// Channel identifies which identity value a verification applies to.
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelMobile Channel = "mobile"
)

// Valid reports whether the channel is one of the known values.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelMobile
}

// Account is a user or organization record. A User always carries a non-nil
// OrganizationID pointing at an existing Organization; an Organization is
// self-rooted (nil OrganizationID).
type Account struct {
	ID             uuid.UUID  `json:"id"`
	EntityName     string     `json:"entityName"`
	OrganizationID *uuid.UUID `json:"organizationId,omitempty"`
	SolutionID     string     `json:"solutionId,omitempty"`

	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Mobile string `json:"mobile,omitempty"`

	StateCode  int    `json:"stateCode"`
	StatusCode int    `json:"statusCode"`
	StatusInfo string `json:"statusCodeInfo,omitempty"`

	Roles    []string `json:"roles,omitempty"`
	Licenses []string `json:"licenses,omitempty"`

	Membership map[string]any `json:"membership,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`

	EmailVerificationCode  string     `json:"emailVerificationCode,omitempty"`
	MobileVerificationCode string     `json:"mobileVerificationCode,omitempty"`
	EmailVerifiedAt        *time.Time `json:"emailVerifiedOn,omitempty"`
	MobileVerifiedAt       *time.Time `json:"mobileVerifiedOn,omitempty"`

	Key           string `json:"key,omitempty"`
	DisableDelete bool   `json:"disableDelete,omitempty"`

	CreatedAt  time.Time `json:"createdOn"`
	UpdatedAt  time.Time `json:"modifiedOn"`
	CreatedBy  uuid.UUID `json:"createdBy,omitempty"`
	ModifiedBy uuid.UUID `json:"modifiedBy,omitempty"`
}

// IsUser reports whether the record is a user.
func (a *Account) IsUser() bool { return a.EntityName == EntityUser }

// IsOrganization reports whether the record is an organization.
func (a *Account) IsOrganization() bool { return a.EntityName == EntityOrganization }

// IdentityValue returns the identity field for the given channel.
func (a *Account) IdentityValue(c Channel) string {
	if c == ChannelMobile {
		return a.Mobile
	}
	return a.Email
}

// VerificationCode returns the stored one-time code for the given channel.
func (a *Account) VerificationCode(c Channel) string {
	if c == ChannelMobile {
		return a.MobileVerificationCode
	}
	return a.EmailVerificationCode
}

// MarkVerified stamps the verified timestamp for the channel and rotates the
// stored code so it cannot be replayed.
func (a *Account) MarkVerified(c Channel, now time.Time) {
	if c == ChannelMobile {
		a.MobileVerifiedAt = &now
		a.MobileVerificationCode = NewVerificationCode()
		return
	}
	a.EmailVerifiedAt = &now
	a.EmailVerificationCode = NewVerificationCode()
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	out := *a
	if a.OrganizationID != nil {
		orgID := *a.OrganizationID
		out.OrganizationID = &orgID
	}
	if a.EmailVerifiedAt != nil {
		t := *a.EmailVerifiedAt
		out.EmailVerifiedAt = &t
	}
	if a.MobileVerifiedAt != nil {
		t := *a.MobileVerifiedAt
		out.MobileVerifiedAt = &t
	}
	out.Roles = append([]string(nil), a.Roles...)
	out.Licenses = append([]string(nil), a.Licenses...)
	out.Membership = cloneMap(a.Membership)
	out.Attributes = cloneMap(a.Attributes)
	return &out
}

// Merge applies incoming fields over the existing record: a shallow merge in
// which non-zero incoming values win, except Membership which is merged one
// level deep (union of keys, incoming values win on conflict). The existing
// record's ID, entity name and organization are always preserved.
func (a *Account) Merge(incoming *Account) {
	if incoming == nil {
		return
	}

	if incoming.Name != "" {
		a.Name = incoming.Name
	}
	if incoming.Email != "" {
		a.Email = incoming.Email
	}
	if incoming.Mobile != "" {
		a.Mobile = incoming.Mobile
	}
	if incoming.SolutionID != "" {
		a.SolutionID = incoming.SolutionID
	}
	if incoming.Roles != nil {
		a.Roles = append([]string(nil), incoming.Roles...)
	}
	if incoming.Licenses != nil {
		a.Licenses = append([]string(nil), incoming.Licenses...)
	}

	if incoming.Membership != nil {
		if a.Membership == nil {
			a.Membership = make(map[string]any, len(incoming.Membership))
		}
		for k, v := range incoming.Membership {
			a.Membership[k] = v
		}
	}

	if incoming.Attributes != nil {
		if a.Attributes == nil {
			a.Attributes = make(map[string]any, len(incoming.Attributes))
		}
		for k, v := range incoming.Attributes {
			a.Attributes[k] = v
		}
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// NewVerificationCode generates a one-time verification code: the first
// segment of a UUID, uppercased.
func NewVerificationCode() string {
	return strings.ToUpper(strings.SplitN(uuid.NewString(), "-", 2)[0])
}

// NewSerialKey generates a monotonic-ish serial key stamped on new user
// records.
func NewSerialKey(now time.Time) string {
	return strconv.FormatInt(now.UnixNano(), 36)
}
