package model

import (
	"bytes"
	"fmt"
	"time"
)

// AmendmentStatus is the lifecycle state of an amendment.
type AmendmentStatus string

const (
	AmendmentStatusProposed  AmendmentStatus = "proposed"
	AmendmentStatusAdopted   AmendmentStatus = "adopted"
	AmendmentStatusRejected  AmendmentStatus = "rejected"
	AmendmentStatusWithdrawn AmendmentStatus = "withdrawn"
)

// Valid reports whether the amendment status is a known value.
func (s AmendmentStatus) Valid() bool {
	switch s {
	case AmendmentStatusProposed, AmendmentStatusAdopted, AmendmentStatusRejected, AmendmentStatusWithdrawn:
		return true
	}
	return false
}

// Content is a text-or-binary payload. Exactly one representation is
// populated; IsBinary tells readers which.
type Content struct {
	Text        string         `json:"text,omitempty"`
	Binary      []byte         `json:"binary,omitempty"`
	IsBinary    bool           `json:"is_binary"`
	ContentType string         `json:"content_type,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// TextContent builds a textual Content with size metadata.
func TextContent(s string) Content {
	return Content{
		Text:        s,
		ContentType: "text/plain",
		Metadata:    map[string]any{"is_binary": false, "encoding": "utf-8", "size_bytes": len(s)},
	}
}

// BinaryContent builds a binary Content, sniffing the MIME type from the
// leading bytes.
func BinaryContent(b []byte) Content {
	ct := DetectContentType(b)
	return Content{
		Binary:      b,
		IsBinary:    true,
		ContentType: ct,
		Metadata:    map[string]any{"is_binary": true, "content_type": ct, "size_bytes": len(b)},
	}
}

// DetectContentType identifies common document formats by signature.
func DetectContentType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return "application/pdf"
	case bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0}):
		return "application/msword"
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return "application/zip"
	}
	return "application/octet-stream"
}

// TextInput is one text version as supplied by the ingestion collaborator.
type TextInput struct {
	TextType *string    `json:"text_type,omitempty"`
	Content  Content    `json:"content"`
	TextDate *time.Time `json:"text_date,omitempty"`
}

// LegislationText is one stored, versioned text of a bill.
type LegislationText struct {
	ID            int64      `json:"id"`
	LegislationID int64      `json:"legislation_id"`
	VersionNum    int        `json:"version_num"`
	TextType      *string    `json:"text_type,omitempty"`
	Content       Content    `json:"content"`
	TextHash      *string    `json:"text_hash,omitempty"`
	TextDate      *time.Time `json:"text_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// AmendmentInput is one amendment as supplied by the ingestion collaborator.
type AmendmentInput struct {
	AmendmentID   string          `json:"amendment_id"`
	Adopted       bool            `json:"adopted"`
	Status        AmendmentStatus `json:"status,omitempty"`
	AmendmentDate *time.Time      `json:"amendment_date,omitempty"`
	Title         *string         `json:"title,omitempty"`
	Description   *string         `json:"description,omitempty"`
	Content       *Content        `json:"content,omitempty"`
	AmendmentURL  *string         `json:"amendment_url,omitempty"`
	StateLink     *string         `json:"state_link,omitempty"`
	Chamber       *string         `json:"chamber,omitempty"`
	SponsorInfo   map[string]any  `json:"sponsor_info,omitempty"`
}

// Validate checks the amendment input's required fields.
func (a AmendmentInput) Validate() error {
	if a.AmendmentID == "" {
		return fmt.Errorf("model: amendment: amendment_id is required")
	}
	if a.Status != "" && !a.Status.Valid() {
		return fmt.Errorf("model: amendment: invalid status %q", a.Status)
	}
	return nil
}

// Amendment is a stored amendment with its own change-detection hash.
type Amendment struct {
	ID            int64           `json:"id"`
	AmendmentID   string          `json:"amendment_id"`
	LegislationID int64           `json:"legislation_id"`
	Adopted       bool            `json:"adopted"`
	Status        AmendmentStatus `json:"status"`
	AmendmentDate *time.Time      `json:"amendment_date,omitempty"`
	Title         *string         `json:"title,omitempty"`
	Description   *string         `json:"description,omitempty"`
	AmendmentHash *string         `json:"amendment_hash,omitempty"`
	Content       *Content        `json:"content,omitempty"`
	AmendmentURL  *string         `json:"amendment_url,omitempty"`
	StateLink     *string         `json:"state_link,omitempty"`
	Chamber       *string         `json:"chamber,omitempty"`
	SponsorInfo   map[string]any  `json:"sponsor_info,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
