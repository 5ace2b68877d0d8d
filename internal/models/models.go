package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin       Role = "Admin"
	RoleReseller    Role = "Reseller"
	RoleSubReseller Role = "Sub-Reseller"
	RoleUser        Role = "User"
)

// Identity is the signed-in operator as returned by the login call.
type Identity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	OwnNumber string    `json:"ownNumber,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (i Identity) Valid() bool {
	return strings.TrimSpace(i.Email) != "" && strings.TrimSpace(string(i.Role)) != ""
}

type UserStatus string

const (
	UserActive  UserStatus = "Active"
	UserBlocked UserStatus = "Blocked"
)

// User is the management record, distinct from the signed-in Identity.
type User struct {
	ID          string     `json:"_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	Status      UserStatus `json:"status"`
	FirmName    string     `json:"firmName,omitempty"`
	Address     string     `json:"address,omitempty"`
	City        string     `json:"city,omitempty"`
	State       string     `json:"state,omitempty"`
	Pincode     string     `json:"pincode,omitempty"`
	Mobile      string     `json:"mobile,omitempty"`
	Contact     string     `json:"contactPerson,omitempty"`
	ContactTel  string     `json:"contactPersonPhone,omitempty"`
	OwnNumber   string     `json:"ownNumber,omitempty"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	Reseller    string     `json:"reseller,omitempty"`
	CompanyName string     `json:"companyName,omitempty"`
	CompanyLogo string     `json:"companyLogo,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type TxType string

const (
	TxAdded   TxType = "Added"
	TxRemoved TxType = "Removed"
)

type CreditTransaction struct {
	ID         string    `json:"_id"`
	To         string    `json:"to"`
	CreditType string    `json:"creditType"`
	Count      int64     `json:"count"`
	Rate       float64   `json:"rate"`
	Total      float64   `json:"total"`
	Type       TxType    `json:"type"`
	Reason     string    `json:"reason,omitempty"`
	By         string    `json:"by,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ReportEntry struct {
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
}

type Campaign struct {
	ID                          string        `json:"_id"`
	UserEmail                   string        `json:"userEmail"`
	CreatedBy                   string        `json:"createdBy,omitempty"`
	CreditType                  string        `json:"creditType"`
	To                          string        `json:"to"`
	Message                     string        `json:"message"`
	DP                          string        `json:"dp,omitempty"`
	SingleCreative              string        `json:"singleCreative,omitempty"`
	Images                      []string      `json:"images,omitempty"`
	PDF                         string        `json:"pdf,omitempty"`
	Video                       string        `json:"video,omitempty"`
	Audio                       string        `json:"audio,omitempty"`
	CTACall                     string        `json:"ctaCall,omitempty"`
	CTACallText                 string        `json:"ctaCallText,omitempty"`
	CTAURL                      string        `json:"ctaURL,omitempty"`
	CTAURLText                  string        `json:"ctaURLText,omitempty"`
	CountryName                 string        `json:"countryName,omitempty"`
	CountryCode                 string        `json:"countryCode,omitempty"`
	Status                      string        `json:"status"`
	Report                      []ReportEntry `json:"report,omitempty"`
	CancellationRejectionReason string        `json:"cancellationRejectionReason,omitempty"`
	CreatedAt                   time.Time     `json:"createdAt"`
}

// RecipientCount counts the comma-joined recipients in To.
func (c Campaign) RecipientCount() int {
	n := 0
	for _, p := range strings.Split(c.To, ",") {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

type TicketReply struct {
	UserEmail string    `json:"userEmail"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type Ticket struct {
	ID                 string        `json:"_id"`
	UserEmail          string        `json:"userEmail"`
	Subject            string        `json:"subject"`
	Description        string        `json:"description"`
	IssueType          string        `json:"issueType"`
	RelatedCampaign    string        `json:"relatedCampaign,omitempty"`
	RelatedUser        string        `json:"relatedUser,omitempty"`
	RelatedTransaction string        `json:"relatedTransaction,omitempty"`
	Attachments        []string      `json:"attachments,omitempty"`
	Status             string        `json:"status"`
	AssignedTo         string        `json:"assignedTo,omitempty"`
	Replies            []TicketReply `json:"replies,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
}

// Assignee is the display name for AssignedTo; tickets nobody took belong to Admin.
func (t Ticket) Assignee() string {
	if strings.TrimSpace(t.AssignedTo) == "" {
		return "Admin"
	}
	return t.AssignedTo
}

type Visibility struct {
	Type    string   `json:"type"`
	Targets []string `json:"targets,omitempty"`
}

type Announcement struct {
	ID         string     `json:"_id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Link       string     `json:"link,omitempty"`
	Image      string     `json:"image,omitempty"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	Visibility Visibility `json:"visibility"`
	SeenBy     []string   `json:"seenBy,omitempty"`
	CreatedBy  string     `json:"createdBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// HasSeen reports whether viewer is in SeenBy.
func (a Announcement) HasSeen(viewer string) bool {
	for _, e := range a.SeenBy {
		if strings.EqualFold(e, viewer) {
			return true
		}
	}
	return false
}

type Notification struct {
	ID        string    `json:"_id"`
	EventType string    `json:"eventType"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Branding struct {
	CompanyName string `json:"companyName"`
	CompanyLogo string `json:"companyLogo"`
}

func DefaultBranding() Branding {
	return Branding{CompanyName: "MessageMaster"}
}

// Megabytes decodes from a JSON number or a numeric string such as "12.50".
type Megabytes float64

func (m *Megabytes) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid megabytes value %s", b)
	}
	*m = Megabytes(v)
	return nil
}

type StorageFigure struct {
	Megabytes Megabytes `json:"megabytes"`
}

type StorageCollection struct {
	Name      string    `json:"name"`
	Count     int64     `json:"count"`
	Megabytes Megabytes `json:"megabytes"`
}

type StorageUsage struct {
	FileStorage     StorageFigure       `json:"fileStorage"`
	DatabaseStorage StorageFigure       `json:"databaseStorage"`
	Collections     []StorageCollection `json:"collections,omitempty"`
}
