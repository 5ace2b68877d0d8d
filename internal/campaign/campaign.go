// Package campaign holds the campaign lifecycle rules the console applies
// before and after talking to the backend: which actions a viewer is offered,
// recipient list handling and delivery report parsing.
package campaign

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"messagemaster/internal/models"
)

const (
	StatusSubmitted             = "Submitted"
	StatusPendingApproval       = "Pending Approval"
	StatusApproved              = "Approved"
	StatusProcessing            = "Processing"
	StatusCompleted             = "Completed"
	StatusRejected              = "Rejected"
	StatusReportGenerated       = "Report Generated"
	StatusCancellationRequested = "Cancellation Requested"
	StatusCancelled             = "Cancelled"
)

// Statuses is the order the status picker and filters present.
var Statuses = []string{
	StatusSubmitted,
	StatusPendingApproval,
	StatusApproved,
	StatusProcessing,
	StatusCompleted,
	StatusRejected,
	StatusReportGenerated,
	StatusCancellationRequested,
	StatusCancelled,
}

func KnownStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Credit types a campaign can be billed against.
var CreditTypes = []string{
	"Normal Message - domestic",
	"Normal Message - international",
	"With DP - domestic",
	"With DP - international",
	"With CTA - domestic",
	"With CTA - international",
	"With DP & CTA - domestic",
	"Own Number + DP + CTA",
}

const OwnNumberType = "Own Number + DP + CTA"

func KnownCreditType(ct string) bool {
	for _, v := range CreditTypes {
		if v == ct {
			return true
		}
	}
	return false
}

func IsInternational(creditType string) bool { return strings.Contains(creditType, "international") }
func NeedsDP(creditType string) bool         { return strings.Contains(creditType, "DP") }
func NeedsCTA(creditType string) bool        { return strings.Contains(creditType, "CTA") }

// noCancelRequest lists statuses where a beneficiary can no longer ask to cancel.
var noCancelRequest = map[string]bool{
	StatusProcessing:            true,
	StatusCompleted:             true,
	StatusReportGenerated:       true,
	StatusRejected:              true,
	StatusCancelled:             true,
	StatusCancellationRequested: true,
}

// Actions are the controls offered on one campaign row.
type Actions struct {
	ViewReport    bool `json:"view_report"`
	UploadReport  bool `json:"upload_report"`
	ReplaceReport bool `json:"replace_report"`
	ChangeStatus  bool `json:"change_status"`
	Delete        bool `json:"delete"`
	ApproveCancel bool `json:"approve_cancel"`
	RejectCancel  bool `json:"reject_cancel"`
	RequestCancel bool `json:"request_cancel"`
}

// ActionsFor derives row actions from the viewer role and campaign status.
// createdBy is shown on the row but never changes what is offered.
func ActionsFor(role models.Role, c models.Campaign) Actions {
	a := Actions{ViewReport: len(c.Report) > 0}
	if role != models.RoleAdmin {
		a.RequestCancel = !noCancelRequest[c.Status]
		return a
	}
	a.ChangeStatus = true
	a.Delete = true
	switch c.Status {
	case StatusCompleted:
		a.UploadReport = true
	case StatusReportGenerated:
		a.ReplaceReport = true
	case StatusCancellationRequested:
		a.ApproveCancel = true
		a.RejectCancel = true
	}
	return a
}

type RefundOption string

const (
	RefundUser     RefundOption = "user"
	RefundReseller RefundOption = "reseller"
	RefundNone     RefundOption = "none"
)

var ErrRefundOption = errors.New("refund option must be user, reseller or none")

func ParseRefundOption(s string) (RefundOption, error) {
	switch RefundOption(strings.ToLower(strings.TrimSpace(s))) {
	case "", RefundUser:
		return RefundUser, nil
	case RefundReseller:
		return RefundReseller, nil
	case RefundNone:
		return RefundNone, nil
	}
	return "", ErrRefundOption
}

var ErrRejectionReason = errors.New("a reason is required to reject a cancellation")

// RejectionReason trims reason and refuses an empty one.
func RejectionReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", ErrRejectionReason
	}
	return reason, nil
}

// CreatedByLabel renders the actor column: the beneficiary, or the actor "(on behalf)".
func CreatedByLabel(c models.Campaign) string {
	if c.CreatedBy == "" || c.CreatedBy == c.UserEmail {
		return c.UserEmail
	}
	return c.CreatedBy + " (on behalf)"
}

// Attachment is one creative stored on the backend under Path.
type Attachment struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// Attachments lists the campaign creatives with their download names.
func Attachments(c models.Campaign) []Attachment {
	ext := func(p string) string {
		e := strings.TrimPrefix(path.Ext(p), ".")
		if e == "" {
			return "bin"
		}
		return e
	}
	var out []Attachment
	add := func(p, name string) {
		if p != "" {
			out = append(out, Attachment{Path: p, Filename: name})
		}
	}
	add(c.DP, fmt.Sprintf("dp-%s.%s", c.ID, ext(c.DP)))
	add(c.SingleCreative, fmt.Sprintf("creative-%s.%s", c.ID, ext(c.SingleCreative)))
	add(c.PDF, fmt.Sprintf("pdf-%s.pdf", c.ID))
	add(c.Video, fmt.Sprintf("video-%s.mp4", c.ID))
	add(c.Audio, fmt.Sprintf("audio-%s.mp3", c.ID))
	for i, img := range c.Images {
		add(img, fmt.Sprintf("image-%d-%s.%s", i+1, c.ID, ext(img)))
	}
	return out
}
