package api

import (
	"github.com/segmentio/ksuid"

	"github.com/ssargent/fitfix/pkg/journal"
	"github.com/ssargent/fitfix/pkg/repair"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

// FixResponse describes a repaired capture. Data is base64 in JSON.
type FixResponse struct {
	RunID    string          `json:"run_id"`
	Size     int             `json:"size"`
	Drops    []repair.Window `json:"drops,omitempty"`
	Dropped  int             `json:"dropped"`
	Records  int             `json:"records"`
	Warnings []string        `json:"warnings,omitempty"`
	Data     []byte          `json:"data,omitempty"`
}

// CheckResponse is the verdict on an unmodified capture
type CheckResponse struct {
	Name   string `json:"name,omitempty"`
	Good   bool   `json:"good"`
	Reason string `json:"reason,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port        int
	Bind        string
	APIKey      string // Empty disables authentication
	MaxBodySize int64

	// Defaults applied before query parameters
	Bounds repair.Bounds
	Header repair.HeaderSpec
}

// JournalWriter is the part of the journal the server needs
type JournalWriter interface {
	Append(journal.Entry) (ksuid.KSUID, error)
	List(limit int) ([]journal.Entry, error)
}
