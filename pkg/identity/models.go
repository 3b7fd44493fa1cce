package identity

import "time"

// Principal is one authenticatable user known to the identity store,
// resolved by the authentication exchange (§4.5).
type Principal struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time

	Groups []Group `gorm:"many2many:principal_groups;"`
}

// Group is a named collection of principals. A share's ACL (§4.4) may
// grant rights to a group rather than naming every member.
type Group struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time

	Principals []Principal `gorm:"many2many:principal_groups;"`
}

// TableName pins the join table name golang-migrate's SQL creates,
// rather than leaving it to GORM's pluralization.
func (Principal) TableName() string { return "principals" }

// TableName pins the join table name golang-migrate's SQL creates.
func (Group) TableName() string { return "groups" }
