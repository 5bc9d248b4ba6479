// Package models defines the core data structures for users, devices and alerts.
package models

import "time"

// User represents a registered user of the dashboard.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Email is the login name chosen by the user.
	Email string `json:"email"`
	// Name is the display name.
	Name string `json:"name"`
	// FaceData is the enrolled face descriptor, empty when not enrolled.
	FaceData string `json:"faceData,omitempty"`
	// EnrollmentDate is set whenever FaceData is (re)enrolled.
	EnrollmentDate *time.Time `json:"enrollmentDate,omitempty"`
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte `json:"passwordHash,omitempty"`
}

// Public returns a copy of the user safe to hand to clients.
func (u User) Public() User {
	u.PasswordHash = nil
	return u
}

// DeviceType defines the set of supported device kinds.
type DeviceType string

const (
	// Laptop is a personal computer.
	Laptop DeviceType = "laptop"
	// Door is an entrance door lock.
	Door DeviceType = "door"
	// Garage is a garage door opener.
	Garage DeviceType = "garage"
)

// Device is a mock lockable device shown on the dashboard.
type Device struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Type   DeviceType `json:"type"`
	Locked bool       `json:"locked"`
	Online bool       `json:"online"`
	// Battery is the charge level 0-100, nil for mains powered devices.
	Battery      *int      `json:"battery,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
}

// AlertKind classifies alert log entries.
type AlertKind string

const (
	AlertFailure    AlertKind = "failure"
	AlertSuccess    AlertKind = "success"
	AlertOffline    AlertKind = "offline"
	AlertBatteryLow AlertKind = "battery_low"
)

// AlertLogEntry is a single event in the alert log.
type AlertLogEntry struct {
	ID          string    `json:"id"`
	DeviceName  string    `json:"deviceName"`
	Timestamp   time.Time `json:"timestamp"`
	Kind        AlertKind `json:"kind"`
	Description string    `json:"description"`
}

// AuthResult is the outcome of a single authentication attempt.
type AuthResult string

const (
	AuthSuccess AuthResult = "success"
	AuthFailure AuthResult = "failure"
)

// AuthAttempt holds the data of one authentication flow. It is discarded
// once the result has been consumed.
type AuthAttempt struct {
	CapturedDescriptor string     `json:"-"`
	EnrolledDescriptor string     `json:"-"`
	MatchConfidence    int        `json:"matchConfidence"`
	Result             AuthResult `json:"result,omitempty"`
}

// SecurityLevel summarises the lock state of all devices.
type SecurityLevel string

const (
	Secure      SecurityLevel = "Secure"
	AllUnlocked SecurityLevel = "All Unlocked"
	Partial     SecurityLevel = "Partial"
)

// SecurityStatus is the dashboard header summary.
type SecurityStatus struct {
	Level  SecurityLevel `json:"level"`
	Locked int           `json:"locked"`
	Total  int           `json:"total"`
}

// ComputeSecurityStatus derives the dashboard summary from a device list.
func ComputeSecurityStatus(devices []Device) SecurityStatus {
	locked := 0
	for _, d := range devices {
		if d.Locked {
			locked++
		}
	}
	st := SecurityStatus{Locked: locked, Total: len(devices)}
	switch {
	case locked == len(devices):
		st.Level = Secure
	case locked == 0:
		st.Level = AllUnlocked
	default:
		st.Level = Partial
	}
	return st
}
