package model

import "time"

// Community types. A community is a chat group students can ask to join —
// one per course, per major, or a general life group.
const (
	CommunityTypeCourse = "course"
	CommunityTypeMajor  = "major"
	CommunityTypeLife   = "life"
)

// DefaultQRCode is the placeholder image used until an admin uploads the
// group's real QR code.
const DefaultQRCode = "/placeholder.svg?height=300&width=300"

// Community represents a joinable group.
//
// The JSON tag on QRCode is "qrCode" (not "qr_code") — the frontend expects
// camelCase for this field, so the rename happens at serialization time, the
// same way ID is exposed as a string even though it's opaque.
type Community struct {
	ID        string    `json:"id"        db:"id"`
	Code      string    `json:"code"      db:"code"`   // e.g. "CSCI-104"
	Name      string    `json:"name"      db:"name"`   // display name
	Number    string    `json:"number"    db:"number"` // group number, optional
	QRCode    string    `json:"qrCode"    db:"qr_code"`
	Type      string    `json:"type"      db:"type"` // course | major | life
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Join request statuses.
const (
	JoinRequestPending  = "pending"
	JoinRequestApproved = "approved"
	JoinRequestRejected = "rejected"
)

// JoinRequest is a user's application to have a community created or to be
// added to one. Anonymous submissions are allowed, so UserID and UserEmail
// are both optional — when the requester was logged in we link their account,
// otherwise we keep whatever email they typed in.
type JoinRequest struct {
	ID             string    `json:"id"              db:"id"`
	DepartmentName string    `json:"department_name" db:"department_name"`
	CourseNumber   string    `json:"course_number"   db:"course_number"`
	Status         string    `json:"status"          db:"status"` // pending | approved | rejected
	UserID         string    `json:"user_id"         db:"user_id"`
	UserEmail      string    `json:"user_email"      db:"user_email"`
	CreatedAt      time.Time `json:"created_at"      db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"      db:"updated_at"`
}
