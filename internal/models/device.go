package models

import (
	"time"

	id "smarttracing/pkg/domain"
)

// Device is the anchor that users own and reports attach to.
type Device struct {
	ID          id.DeviceID `json:"id"`
	Fingerprint string      `json:"fingerprint,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// User is a person who registered through a device. Every field but ID is
// optional; a soft-deleted user is never returned.
type User struct {
	ID          id.UserID   `json:"id"`
	Name        string      `json:"name,omitempty"`
	ContactInfo ContactInfo `json:"contact_info"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TestResult is a self-reported diagnostic test outcome.
type TestResult struct {
	ID             id.ReportID `json:"id"`
	DeviceID       id.DeviceID `json:"device_id"`
	TestDate       time.Time   `json:"test_date"`
	TestedPositive bool        `json:"tested_positive"`
	Verified       bool        `json:"verified"`
	Timestamp      time.Time   `json:"timestamp"`
}

// Symptoms is a self-reported set of symptoms with an optional temperature.
type Symptoms struct {
	ID          id.ReportID `json:"id"`
	DeviceID    id.DeviceID `json:"device_id"`
	Symptoms    []Symptom   `json:"symptoms"`
	Temperature *float64    `json:"temperature,omitempty"`
	Verified    bool        `json:"verified"`
	Timestamp   time.Time   `json:"timestamp"`
}

// ReportSummary is one entry of a device's report history.
type ReportSummary struct {
	ID        id.ReportID `json:"id"`
	Kind      ReportKind  `json:"kind"`
	Verified  bool        `json:"verified"`
	Timestamp time.Time   `json:"timestamp"`
}
