package model

// User is the acting principal for every operation in this service. The
// identity itself is owned by the external identity provider; this service
// only ever reads the ID it is handed via the access token and never
// creates or mutates user records.
//
// Fields:
//  ID   – stable identifier supplied by the identity provider.
//  Role – authorization role carried in the token (MEMBER, ADMIN).
type User struct {
	ID   uint64 // opaque identifier from the identity provider
	Role string // role claim used by the role middleware
}

// Roles accepted by the role middleware. Tokens carrying any other value
// are rejected on protected routes.
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)
